package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/yrfi-cli/internal/model"
	"github.com/sells-group/yrfi-cli/internal/predict"
)

// today returns the current date at midnight UTC.
func today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dateFlag reads a YYYY-MM-DD flag, falling back to def when unset.
func dateFlag(cmd *cobra.Command, name string, def time.Time) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return def, nil
	}
	t, ok := model.ParseDate(raw)
	if !ok {
		return time.Time{}, eris.Errorf("--%s: invalid date %q (want YYYY-MM-DD)", name, raw)
	}
	return t, nil
}

// dateRange reads --from and --to and checks that from is not after to.
func dateRange(cmd *cobra.Command, from, to time.Time) (time.Time, time.Time, error) {
	f, err := dateFlag(cmd, "from", from)
	if err != nil {
		return f, f, err
	}
	t, err := dateFlag(cmd, "to", to)
	if err != nil {
		return f, t, err
	}
	if f.After(t) {
		return f, t, eris.Errorf("--from %s is after --to %s", model.FormatDate(f), model.FormatDate(t))
	}
	return f, t, nil
}

// windowFlags reads the optional --from/--to prediction window. Unset
// bounds are open.
func windowFlags(cmd *cobra.Command) (predict.Window, error) {
	var w predict.Window
	for _, p := range []struct {
		name string
		dst  *string
	}{{"from", &w.From}, {"to", &w.To}} {
		t, err := dateFlag(cmd, p.name, time.Time{})
		if err != nil {
			return w, err
		}
		if !t.IsZero() {
			*p.dst = model.FormatDate(t)
		}
	}
	if w.From != "" && w.To != "" && w.From > w.To {
		return w, eris.Errorf("--from %s is after --to %s", w.From, w.To)
	}
	return w, nil
}

func addRangeFlags(cmd *cobra.Command, fromHelp, toHelp string) {
	cmd.Flags().String("from", "", fromHelp)
	cmd.Flags().String("to", "", toHelp)
}
