// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in agent console page.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// NewWebSocketHandler returns the upgrade endpoint for the given hub. It
// derives the session's initial identity from the `name` and `permissions`
// query parameters, sanitized against the connect-time vocabulary, and hands
// the session to the hub, which registers it and starts the pumps.
func NewWebSocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
			return
		}

		id := NewSessionID()
		name, permissions := connectionIdentity(r, id)

		session := NewSession(conn, hub, id, name, permissions, r.RemoteAddr)
		hub.register <- session
	}
}

// connectionIdentity derives the initial display name and capability set
// from the request query parameters.
func connectionIdentity(r *http.Request, id string) (string, []string) {
	query := r.URL.Query()

	name := sanitizeName(query.Get("name"))
	if name == "" {
		name = "Client-" + id[:4]
	}

	permissions := filterConnectPermissions(strings.Split(query.Get("permissions"), ","))
	if len(permissions) == 0 {
		permissions = defaultPermissions()
	}

	return name, permissions
}

// HealthHandler provides a simple health check endpoint that returns server
// status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Agent Hub server is running!")
}

// ConsolePageHandler serves an HTML console for exercising the WebSocket
// event catalogue by hand: connect with a name and permissions, update
// identity, list the roster, and announce transfers.
func ConsolePageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, consolePage); err != nil {
		slog.Warn("Error writing console page", "error", err)
	}
}

const consolePage = `<!DOCTYPE html>
<html>
<head>
    <title>Agent Hub Console</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #events { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; background: #f9f9f9; font-family: monospace; font-size: 12px; }
        input[type="text"] { padding: 5px; margin-right: 6px; }
        button { padding: 5px 12px; margin-right: 6px; cursor: pointer; }
    </style>
</head>
<body>
    <h1>Agent Hub Console</h1>
    <div>
        <input type="text" id="name" placeholder="name">
        <input type="text" id="permissions" placeholder="permissions (e.g. 2,3)">
        <button onclick="connect()">Connect</button>
    </div>
    <div>
        <button onclick="send('get_clients', {})">List clients</button>
        <button onclick="sendAuth()">Send auth_data</button>
        <button onclick="sendTransfer()">Transfer to cartera</button>
        <button onclick="send('notification', 'manual alert')">Notify all</button>
    </div>
    <div id="events"></div>
    <script>
        let ws = null;
        const events = document.getElementById('events');

        function log(line) {
            const el = document.createElement('div');
            el.textContent = line;
            events.appendChild(el);
            events.scrollTop = events.scrollHeight;
        }

        function connect() {
            const name = document.getElementById('name').value;
            const permissions = document.getElementById('permissions').value;
            const params = new URLSearchParams();
            if (name) params.set('name', name);
            if (permissions) params.set('permissions', permissions);
            ws = new WebSocket('ws://' + location.host + '/ws?' + params.toString());
            ws.onopen = () => log('-- connected --');
            ws.onclose = () => log('-- closed --');
            ws.onmessage = (e) => log('<< ' + e.data);
        }

        function send(type, payload) {
            if (!ws || ws.readyState !== WebSocket.OPEN) { log('!! not connected'); return; }
            const frame = JSON.stringify({ type, payload });
            ws.send(frame);
            log('>> ' + frame);
        }

        function sendAuth() {
            send('auth_data', {
                name: document.getElementById('name').value,
                permissions: document.getElementById('permissions').value
            });
        }

        function sendTransfer() {
            send('transfer_client', { targetClientId: 'demo-client', newCategory: 'cartera' });
        }
    </script>
</body>
</html>`
