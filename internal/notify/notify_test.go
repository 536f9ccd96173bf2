package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/yrfi-cli/internal/model"
)

func fp(v float64) *float64 { return &v }

func edge(away, home string, p, odds, e float64) model.Edge {
	return model.Edge{
		Prediction: model.Prediction{
			FeatureRow:  model.FeatureRow{Date: "2025-04-21", AwayTeam: away, HomeTeam: home},
			Probability: p,
			YRFIFire:    "🔥🔥🔥",
		},
		YRFIOdds:      fp(odds),
		PredictedEdge: fp(e),
	}
}

func TestFormat(t *testing.T) {
	text := Format("2025-04-21", []model.Edge{
		edge("Boston Red Sox", "New York Yankees", 0.61, -110, 0.086),
	})
	assert.Contains(t, text, "*YRFI edges 2025-04-21*")
	assert.Contains(t, text, "1. Boston Red Sox @ New York Yankees  p=0.61  odds -110  edge +0.086")
	assert.Contains(t, text, "🔥🔥🔥")
}

func TestFormatEmpty(t *testing.T) {
	assert.Contains(t, Format("2025-04-21", nil), "No games above the edge threshold.")
}

func TestFormatEscapesMarkdown(t *testing.T) {
	text := Format("2025-04-21", []model.Edge{edge("A_B", "C*D", 0.5, 100, 0)})
	assert.Contains(t, text, `A\_B @ C\*D`)
}

// botServer fakes the two Bot API methods the sender calls.
func botServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var sent []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":     true,
				"result": map[string]any{"id": 1, "is_bot": true, "first_name": "yrfi", "username": "yrfi_bot"},
			})
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			_ = r.ParseForm()
			mu.Lock()
			sent = append(sent, r.PostForm.Get("text"))
			mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":     true,
				"result": map[string]any{"message_id": 7, "date": 0, "chat": map[string]any{"id": 42, "type": "private"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &sent
}

func TestTelegramSend(t *testing.T) {
	srv, sent := botServer(t)

	tg, err := NewTelegram(TelegramOptions{
		Token:    "token",
		ChatID:   42,
		Endpoint: srv.URL + "/bot%s/%s",
		Client:   srv.Client(),
	})
	require.NoError(t, err)

	require.NoError(t, tg.Send(context.Background(), "hello"))
	require.Len(t, *sent, 1)
	assert.Equal(t, "hello", (*sent)[0])
}

func TestTelegramSendCancelled(t *testing.T) {
	srv, sent := botServer(t)
	tg, err := NewTelegram(TelegramOptions{Token: "token", ChatID: 42, Endpoint: srv.URL + "/bot%s/%s"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, tg.Send(ctx, "hello"))
	assert.Empty(t, *sent)
}

func TestNewTelegramValidation(t *testing.T) {
	_, err := NewTelegram(TelegramOptions{ChatID: 1})
	assert.Error(t, err)
	_, err = NewTelegram(TelegramOptions{Token: "t"})
	assert.Error(t, err)
}
