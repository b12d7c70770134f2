package server

import (
	"bytes"
	"html/template"
	"net/http"
)

// pageData feeds pageTemplate.
type pageData struct {
	Title            string
	PhotoUnavailable string
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageData{
		Title:            s.cfg.Title,
		PhotoUnavailable: s.cfg.Messages.PhotoUnavailable,
	}); err != nil {
		s.logger.Error("render page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>` + pageCSS + `</style>
</head>
<body>
<header>
  <h1>{{.Title}}</h1>
  <div class="controls">
    <select id="plant-list" aria-label="plants"><option value="">식물 선택</option></select>
    <button type="button" data-event="zoom-in" title="zoom in">+</button>
    <button type="button" data-event="zoom-out" title="zoom out">-</button>
    <button type="button" data-event="reset" title="reset view">1:1</button>
    <button type="button" id="back" data-event="back" disabled>뒤로</button>
    <button type="button" id="close" data-event="close" hidden>닫기</button>
  </div>
</header>
<main>
  <div id="viewport">
    <div id="layer">
      <img id="map" alt="" draggable="false">
      <div id="markers"></div>
    </div>
    <p id="map-failed" hidden>{{.PhotoUnavailable}}</p>
  </div>
  <aside id="detail"></aside>
</main>
<script>` + pageJS + `</script>
</body>
</html>
`))

const pageCSS = `
body { margin: 0; font-family: system-ui, sans-serif; color: #1d2b1d; background: #f7faf5; }
header { display: flex; flex-wrap: wrap; align-items: center; gap: 12px; padding: 8px 16px; border-bottom: 1px solid #d8e2d3; }
header h1 { font-size: 1.2rem; margin: 0; }
.controls { display: flex; gap: 6px; align-items: center; }
main { display: flex; flex-wrap: wrap; gap: 16px; padding: 16px; }
#viewport { position: relative; overflow: hidden; flex: 3 1 480px; height: 70vh; background: #eef3ea; border: 1px solid #cfdac9; touch-action: none; user-select: none; cursor: grab; }
#viewport.dragging { cursor: grabbing; }
#layer { position: absolute; left: 0; top: 0; transform-origin: 0 0; }
#map { display: block; width: 100%; height: 100%; pointer-events: none; }
#map-failed { position: absolute; left: 12px; bottom: 4px; color: #8a4b3a; }
.marker { position: absolute; padding: 2px 6px; border: 1px solid #2f6b2f; border-radius: 12px; background: #ffffffe6; font-size: 14px; line-height: 1.2; cursor: pointer; white-space: nowrap; }
.marker.selected { background: #2f6b2f; color: #fff; }
#detail { flex: 1 1 260px; min-height: 120px; }
.plant-detail h2 { margin-top: 0; }
.plant-photo img { max-width: 100%; border-radius: 6px; }
.photo-unavailable, .plant-hint { color: #6b7a66; }
`

const pageJS = `
(function () {
  var viewport = document.getElementById('viewport');
  var layer = document.getElementById('layer');
  var mapImg = document.getElementById('map');
  var markers = document.getElementById('markers');
  var list = document.getElementById('plant-list');
  var detail = document.getElementById('detail');
  var backBtn = document.getElementById('back');
  var closeBtn = document.getElementById('close');
  var mapFailed = document.getElementById('map-failed');

  var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
  var ws = new WebSocket(proto + location.host + '/ws');
  var down = false;
  var optionKey = '';

  function send(ev) {
    if (ws.readyState === WebSocket.OPEN) ws.send(JSON.stringify(ev));
  }

  function local(e) {
    var r = viewport.getBoundingClientRect();
    var p = e.touches && e.touches.length ? e.touches[0] : e;
    return { x: p.clientX - r.left, y: p.clientY - r.top };
  }

  function sendSize() {
    send({ type: 'resize', width: viewport.clientWidth, height: viewport.clientHeight });
  }

  function render(f) {
    layer.style.transform = f.css;
    var box = f.image.state === 'ready' ? f.image : f.viewport;
    layer.style.width = box.width + 'px';
    layer.style.height = box.height + 'px';
    mapFailed.hidden = f.image.state !== 'failed';
    viewport.classList.toggle('dragging', f.dragging);

    markers.textContent = '';
    f.markers.forEach(function (m) {
      var b = document.createElement('button');
      b.type = 'button';
      b.className = 'marker' + (m.selected ? ' selected' : '');
      b.style.cssText = m.style;
      b.title = m.name;
      b.textContent = m.glyph;
      b.dataset.id = m.id;
      markers.appendChild(b);
    });

    var key = f.options.map(function (o) { return o.id + '\u0000' + o.name; }).join('\u0001');
    if (key !== optionKey) {
      optionKey = key;
      while (list.options.length > 1) list.remove(1);
      f.options.forEach(function (o) {
        var opt = document.createElement('option');
        opt.value = o.id;
        opt.textContent = o.name || o.id;
        list.appendChild(opt);
      });
    }
    list.value = f.selected || '';

    detail.innerHTML = f.detail;
    backBtn.disabled = !f.canGoBack;
    closeBtn.hidden = !f.selected;
  }

  ws.onopen = sendSize;
  ws.onmessage = function (msg) {
    var m = JSON.parse(msg.data);
    if (m.type === 'mount') {
      mapImg.src = m.map;
      render(m.frame);
    } else if (m.type === 'frame') {
      render(m.frame);
    } else if (m.type === 'error') {
      console.warn('ecomap:', m.code, m.error);
    }
  };

  mapImg.addEventListener('load', function () {
    send({ type: 'image-loaded', width: mapImg.naturalWidth, height: mapImg.naturalHeight });
  });
  mapImg.addEventListener('error', function () { send({ type: 'image-failed' }); });

  detail.addEventListener('error', function (e) {
    var img = e.target;
    if (!img || img.tagName !== 'IMG' || !img.hasAttribute('data-fallback')) return;
    img.hidden = true;
    var notice = img.parentNode && img.parentNode.querySelector('.photo-unavailable');
    if (notice) notice.hidden = false;
  }, true);

  markers.addEventListener('mousedown', function (e) { e.stopPropagation(); });
  markers.addEventListener('touchstart', function (e) { e.stopPropagation(); });
  markers.addEventListener('click', function (e) {
    var b = e.target.closest('.marker');
    if (!b) return;
    e.stopPropagation();
    send({ type: 'click-marker', id: b.dataset.id });
  });

  viewport.addEventListener('mousedown', function (e) {
    if (e.button !== 0) return;
    down = true;
    var p = local(e);
    send({ type: 'pointer-down', x: p.x, y: p.y });
  });
  viewport.addEventListener('touchstart', function (e) {
    down = true;
    var p = local(e);
    send({ type: 'pointer-down', x: p.x, y: p.y });
  }, { passive: true });
  window.addEventListener('mousemove', function (e) {
    if (!down) return;
    var p = local(e);
    send({ type: 'pointer-move', x: p.x, y: p.y });
  });
  window.addEventListener('touchmove', function (e) {
    if (!down) return;
    var p = local(e);
    send({ type: 'pointer-move', x: p.x, y: p.y });
  }, { passive: true });
  function release() {
    if (!down) return;
    down = false;
    send({ type: 'pointer-up' });
  }
  window.addEventListener('mouseup', release);
  window.addEventListener('touchend', release);
  window.addEventListener('touchcancel', release);

  viewport.addEventListener('click', function () { send({ type: 'click-empty' }); });

  viewport.addEventListener('wheel', function (e) {
    if (!(e.ctrlKey || e.metaKey)) return;
    e.preventDefault();
    var p = local(e);
    send({ type: 'wheel', deltaY: e.deltaY, x: p.x, y: p.y, modifier: true });
  }, { passive: false });

  list.addEventListener('change', function () {
    if (list.value) send({ type: 'select', id: list.value });
  });

  document.querySelectorAll('button[data-event]').forEach(function (b) {
    b.addEventListener('click', function () { send({ type: b.dataset.event }); });
  });

  window.addEventListener('resize', sendSize);
})();
`
