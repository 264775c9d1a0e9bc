package console

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// consolePage is the single static page. It polls the JSON API; everything
// operational lives behind /api.
const consolePage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>semdex console</title>
<style>
body { font-family: ui-monospace, monospace; margin: 2rem; background: #111; color: #ddd; }
h1 { font-size: 1.2rem; }
button { margin-right: .5rem; padding: .4rem .8rem; }
pre { background: #1a1a1a; padding: 1rem; overflow-x: auto; }
.err { color: #e66; }
</style>
</head>
<body>
<h1>semdex console</h1>
<p>
<button onclick="post('/api/index', {reindex_all:false})">Index</button>
<button onclick="post('/api/index', {reindex_all:true})">Rebuild</button>
<button onclick="post('/api/cancel')">Cancel</button>
<button onclick="post('/api/reinitialize')">Reinitialize</button>
</p>
<pre id="status">loading…</pre>
<pre id="progress"></pre>
<script>
async function refresh() {
  try {
    const s = await (await fetch('/api/status')).json();
    document.getElementById('status').textContent = JSON.stringify(s, null, 2);
    const p = await (await fetch('/api/progress')).json();
    document.getElementById('progress').textContent =
      p.slice(-20).map(l => JSON.stringify(l)).join('\n');
  } catch (e) {
    document.getElementById('status').textContent = 'unreachable: ' + e;
  }
}
async function post(url, body) {
  const res = await fetch(url, {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: body ? JSON.stringify(body) : null,
  });
  if (!res.ok) alert(await res.text());
  refresh();
}
refresh();
setInterval(refresh, 2000);
</script>
</body>
</html>`

func (c *Console) handlePage(ec echo.Context) error {
	return ec.HTML(http.StatusOK, consolePage)
}
