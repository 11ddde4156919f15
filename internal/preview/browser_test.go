package preview_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/starford/livepad/internal/models"
	"github.com/starford/livepad/internal/preview"
)

const hostPage = `<!DOCTYPE html>
<html><body>
<script>
window.__intents = [];
window.addEventListener('message', function (e) { window.__intents.push(e.data); });
</script>
<iframe id="frame" src="/preview"></iframe>
</body></html>`

func newChromedpContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)
	ctx, cancelTimeout := context.WithTimeout(ctx, 30*time.Second)
	return ctx, func() {
		cancelTimeout()
		cancelCtx()
		cancelAlloc()
	}
}

// startBridgeHost serves a host page framing the composed preview and
// returns a browser context pointed at nothing yet. It skips the test when no
// browser is available.
func startBridgeHost(t *testing.T) (context.Context, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("browser test skipped in -short mode")
	}
	files := []models.File{
		{ID: 1, FileName: "index.html", Content: `<a id="go" href="b.html"><span id="inner">b</span></a><p id="plain">text</p>`},
		{ID: 2, FileName: "b.html", Content: `<p>b</p>`},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(hostPage))
	})
	mux.HandleFunc("/preview", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(preview.Compose(files, 1)))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	ctx, cancel := newChromedpContext(t)
	t.Cleanup(cancel)
	if err := chromedp.Run(ctx); err != nil {
		t.Skipf("chrome not available: %v", err)
	}
	return ctx, server.URL
}

const (
	frameDoc = `document.getElementById('frame').contentDocument`
	frameWin = `document.getElementById('frame').contentWindow`
)

func assertSingleIntent(t *testing.T, intents []map[string]string, framePath string) {
	t.Helper()
	if len(intents) != 1 {
		t.Fatalf("intents = %v, want exactly one", intents)
	}
	if intents[0]["type"] != "navigate" || intents[0]["file"] != "b.html" {
		t.Errorf("intent = %v", intents[0])
	}
	if framePath != "/preview" {
		t.Errorf("frame navigated to %q; default action should be suppressed", framePath)
	}
}

func TestBridgeInBrowser(t *testing.T) {
	ctx, url := startBridgeHost(t)

	var intents []map[string]string
	var framePath string
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.Poll(frameDoc+`.getElementById('go') !== null`, nil, chromedp.WithPollingTimeout(10*time.Second)),
		chromedp.Evaluate(frameDoc+`.getElementById('plain').click()`, nil),
		chromedp.Evaluate(frameDoc+`.getElementById('inner').click()`, nil),
		chromedp.Poll(`window.__intents.length > 0`, nil, chromedp.WithPollingTimeout(5*time.Second)),
		chromedp.Sleep(200*time.Millisecond),
		chromedp.Evaluate(`window.__intents`, &intents),
		chromedp.Evaluate(frameWin+`.location.pathname`, &framePath),
	)
	if err != nil {
		t.Fatalf("chromedp failed: %v", err)
	}
	assertSingleIntent(t, intents, framePath)
}

func TestBridgeReinstalledAfterCacheRestore(t *testing.T) {
	ctx, url := startBridgeHost(t)

	var intents []map[string]string
	var framePath string
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.Poll(frameDoc+`.getElementById('go') !== null`, nil, chromedp.WithPollingTimeout(10*time.Second)),
		chromedp.Evaluate(frameWin+`.dispatchEvent(new PageTransitionEvent('pagehide', {persisted: true}))`, nil),
		chromedp.Evaluate(frameWin+`.dispatchEvent(new PageTransitionEvent('pageshow', {persisted: true}))`, nil),
		chromedp.Evaluate(frameDoc+`.getElementById('inner').click()`, nil),
		chromedp.Poll(`window.__intents.length > 0`, nil, chromedp.WithPollingTimeout(5*time.Second)),
		chromedp.Sleep(200*time.Millisecond),
		chromedp.Evaluate(`window.__intents`, &intents),
		chromedp.Evaluate(frameWin+`.location.pathname`, &framePath),
	)
	if err != nil {
		t.Fatalf("chromedp failed: %v", err)
	}
	assertSingleIntent(t, intents, framePath)
}
