package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/measure-sync/internal/status"
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
	"bpm": func(v float64) string {
		return fmt.Sprintf("%.2f", v)
	},
	"orNone": func(s string) string {
		if s == "" {
			return "none"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Measure Sync</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.synced { color: green; font-weight: bold; }
.waiting { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
.beat { color: #fff; background: green; }
</style>
</head>
<body>
<h1>Measure Sync{{if .Live}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Sync</h2>
<table>
<tr><th>State</th><td id="sync-state" class="{{if .Synced}}synced{{else}}waiting{{end}}">{{.State}}</td></tr>
<tr><th>Tempo</th><td id="bpm">{{bpm .BPM}} BPM</td></tr>
<tr><th>Phase</th><td id="phase">{{.Phase}}</td></tr>
<tr><th>Session</th><td id="session">{{orNone .Session}}</td></tr>
<tr><th>Last measure</th><td id="last-measure">{{if .LastMeasureAt.IsZero}}never{{else}}{{.LastMeasureAt.UTC.Format "2006-01-02T15:04:05Z"}}{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Serial</th><td>{{orNone .Config.Serial}}</td></tr>
<tr><th>MIDI out</th><td>{{orNone .Config.MIDIOut}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Measures</th><td id="count-measures">{{.Counts.Measures}}</td></tr>
<tr><th>Playback starts</th><td>{{.Counts.PlaybackStarts}}</td></tr>
<tr><th>Disconnects</th><td>{{.Counts.Disconnects}}</td></tr>
<tr><th>Debounced</th><td>{{.Counts.Debounced}}</td></tr>
<tr><th>Dropped</th><td>{{.Counts.Dropped}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Sync pin</th><td>BCM {{.Config.PinSync}}</td></tr>
<tr><th>LED pin</th><td>{{if lt .Config.PinLED 0}}disabled{{else}}BCM {{.Config.PinLED}}{{end}}</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Disconnect</th><td>{{.Config.DisconnectMs}}ms</td></tr>
<tr><th>Signature</th><td>{{.Config.SignatureMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Live}}
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var stateEl = document.getElementById("sync-state");
  var bpmEl = document.getElementById("bpm");
  var phaseEl = document.getElementById("phase");
  var sessionEl = document.getElementById("session");
  var lastEl = document.getElementById("last-measure");
  var measuresEl = document.getElementById("count-measures");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function setSynced(synced) {
    stateEl.textContent = synced ? "SYNCED" : "WAITING";
    stateEl.className = synced ? "synced" : "waiting";
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/live");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onerror = function() { setDot("err", "error"); };
    ws.onclose = function() {
      setDot("pending", "reconnecting");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(e) {
      try {
        var m = JSON.parse(e.data).measure;
        if (!m) return;
        phaseEl.textContent = m.phase;
        sessionEl.textContent = m.session || "none";
        if (m.event === "DISCONNECT") {
          setSynced(false);
        } else if (m.event === "PLAYBACK_START") {
          setSynced(true);
        } else if (m.event === "MEASURE_START") {
          setSynced(true);
          bpmEl.textContent = m.bpm.toFixed(2) + " BPM";
          lastEl.textContent = m.timestamp;
          measuresEl.textContent = parseInt(measuresEl.textContent, 10) + 1;
          stateEl.classList.add("beat");
          setTimeout(function() { stateEl.classList.remove("beat"); }, 100);
        }
      } catch (err) {}
    };
  }
  connect();
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, live bool) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Live   bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Live:     live,
	}
	indexTmpl.Execute(w, data)
}
