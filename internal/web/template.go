package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/iobeam-bridge/internal/iobeam"
	"github.com/sweeney/iobeam-bridge/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"interlock": status.InterlockLabel,
	"channels": func(chs []int) string {
		if len(chs) == 0 {
			return "none"
		}
		parts := make([]string, len(chs))
		for i, c := range chs {
			parts[i] = strconv.Itoa(c)
		}
		return strings.Join(parts, ", ")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>iobeam bridge</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.closed { color: green; font-weight: bold; }
.open { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>iobeam bridge</h1>

<h2>Interlocks</h2>
<table>
<tr><th>Aggregate</th><td id="interlock" class="{{if .IOBeam.InterlockClosed}}closed{{else}}open{{end}}">{{interlock .IOBeam.InterlockClosed}}</td></tr>
<tr><th>Open channels</th><td>{{channels .IOBeam.OpenChannels}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>iobeam</th><td id="connection" class="{{if .Connected}}connected{{else}}disconnected{{end}}">{{.IOBeam.State}}</td></tr>
<tr><th>Socket</th><td>{{.Config.SocketPath}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
{{range .Counts}}<tr><th>{{.Name}}</th><td>{{.Count}}</td></tr>
{{end}}</table>

<h2>Socket</h2>
<table>
<tr><th>Connects</th><td>{{.IOBeam.Connects}}</td></tr>
<tr><th>Disconnects</th><td>{{.IOBeam.Disconnects}}</td></tr>
<tr><th>Lines read</th><td>{{.IOBeam.LinesRead}}</td></tr>
<tr><th>Parse failures</th><td>{{.IOBeam.ParseFailures}}</td></tr>
<tr><th>Forced reconnects</th><td>{{.IOBeam.ForcedReconnects}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Reconnect delay</th><td>{{.Config.ReconnectDelayMs}}ms</td></tr>
<tr><th>Max parse failures</th><td>{{if lt .Config.MaxConsecutiveParseFailures 0}}unlimited{{else}}{{.Config.MaxConsecutiveParseFailures}}{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

type eventCount struct {
	Name  string
	Count int
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	counts := make([]eventCount, len(iobeam.Events))
	for i, name := range iobeam.Events {
		counts[i] = eventCount{Name: name, Count: snap.IOBeam.EventCounts[name]}
	}

	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime    time.Duration
		Connected bool
		Counts    []eventCount
	}{
		Snapshot:  snap,
		Uptime:    snap.Uptime(),
		Connected: snap.IOBeam.State == iobeam.StateConnected,
		Counts:    counts,
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
