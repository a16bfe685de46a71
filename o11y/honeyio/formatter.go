package honeyio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pluvio/dbx/colourise"
)

// TextFormatter turns the JSON lines a transmission.WriterSender produces
// into single-line human readable output on W. With Colour set, trace ids
// and span names are coloured by hash so related lines are easy to spot.
type TextFormatter struct {
	W      io.Writer
	Colour bool
}

type wireEvent struct {
	Dataset string         `json:"dataset"`
	Time    time.Time      `json:"time"`
	Data    map[string]any `json:"data"`
}

func (h *TextFormatter) Write(raw []byte) (int, error) {
	ev := &wireEvent{}
	if err := json.Unmarshal(raw, ev); err != nil {
		return 0, err
	}
	_, err := h.W.Write(h.format(ev))
	return len(raw), err
}

func (h *TextFormatter) format(ev *wireEvent) []byte {
	buf := &bytes.Buffer{}
	_, _ = fmt.Fprintf(buf, "%s %s %7.2fms %s",
		ev.Time.Format("15:04:05"),
		h.colourise(shortTraceID(ev.Data["trace.trace_id"])),
		floatField(ev.Data["duration_ms"]),
		h.colourise(fmt.Sprintf("%v", ev.Data["name"])),
	)

	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		if excluded(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		label := k
		if h.Colour && (k == "error" || k == "panic") {
			label = colourise.ErrorHighlight(k)
		}
		_, _ = fmt.Fprintf(buf, " %s=%v", label, ev.Data[k])
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// excluded drops fields already rendered in the prefix and the noisy
// bookkeeping ones.
func excluded(k string) bool {
	switch k {
	case "name", "duration_ms", "service", "version":
		return true
	}
	return strings.HasPrefix(k, "trace.") || strings.HasPrefix(k, "meta.")
}

func (h *TextFormatter) colourise(v string) string {
	if !h.Colour {
		return v
	}
	return colourise.ApplyColour(v)
}

func shortTraceID(raw any) string {
	id, ok := raw.(string)
	if !ok || len(id) < 5 {
		return "unkwn"
	}
	return id[len(id)-5:]
}

func floatField(raw any) float64 {
	f, _ := raw.(float64)
	return f
}
