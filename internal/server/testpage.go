package server

import (
	"fmt"
	"log"
	"net/http"
)

// TestPageHandler serves an HTML test page for exercising the connection
// protocol by hand: request access, wait for approval, join, and exchange
// direct messages while watching the live roster.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Chatterbox Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #log {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { padding: 5px; margin-right: 5px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        #roster { color: #155724; margin: 10px 0; }
    </style>
</head>
<body>
    <h1>Chatterbox Test</h1>

    <div>
        <input type="text" id="username" placeholder="Username">
        <button onclick="waitForApproval()">Wait for approval</button>
        <button onclick="join()">Join</button>
    </div>
    <div>
        <input type="text" id="to" placeholder="To">
        <input type="text" id="body" placeholder="Message...">
        <button onclick="sendMessage()">Send</button>
    </div>

    <div id="roster">Online: (none)</div>
    <div id="log"></div>

    <script>
        const logDiv = document.getElementById('log');
        const ws = new WebSocket('ws://' + location.host + '/ws');

        function addLine(text) {
            const line = document.createElement('div');
            line.textContent = text;
            logDiv.appendChild(line);
            logDiv.scrollTop = logDiv.scrollHeight;
        }

        ws.onopen = () => addLine('connected');
        ws.onclose = () => addLine('disconnected');
        ws.onmessage = (event) => {
            const data = JSON.parse(event.data);
            if (data.type === 'online-users') {
                document.getElementById('roster').textContent =
                    'Online: ' + (data.users.length ? data.users.join(', ') : '(none)');
            } else if (data.type === 'message') {
                addLine(data.from + ': ' + data.message);
            } else if (data.type === 'approved') {
                addLine('you have been approved');
            } else if (data.type === 'error') {
                addLine('error: ' + data.message);
            }
        };

        function waitForApproval() {
            ws.send(JSON.stringify({
                type: 'pending-register',
                username: document.getElementById('username').value
            }));
        }

        function join() {
            ws.send(JSON.stringify({
                type: 'join',
                username: document.getElementById('username').value
            }));
        }

        function sendMessage() {
            ws.send(JSON.stringify({
                type: 'message',
                to: document.getElementById('to').value,
                message: document.getElementById('body').value
            }));
            document.getElementById('body').value = '';
        }
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}
