package viewer

import (
	"fmt"
	"runtime"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	hudFontSize   = 20
	hudPadding    = 12
	hudLineHeight = hudFontSize + 4
	logFontSize   = 16
	// updateInterval: only refresh FPS/Mem text every N frames to reduce allocations.
	updateInterval = 30
)

const helpText = "click: place model   E: image plane   G: export   F: fps   right drag: look"

// hud draws the 2D overlay: intro banner, alerts, stats and recent log lines.
type hud struct {
	showFPS bool
	banner  []string

	alertText  string
	alertUntil time.Time

	frameCount   uint32
	lastFpsText  string
	lastMemText  string
	lastMemStats runtime.MemStats
}

func newHUD(showFPS bool) *hud {
	return &hud{showFPS: showFPS}
}

// alert shows msg for d, replacing any alert still on screen.
func (h *hud) alert(msg string, d time.Duration) {
	h.alertText = msg
	h.alertUntil = time.Now().Add(d)
}

func (h *hud) draw(lines []string) {
	screenW := int32(rl.GetScreenWidth())
	screenH := int32(rl.GetScreenHeight())

	y := int32(hudPadding)
	for _, line := range h.banner {
		w := rl.MeasureText(line, hudFontSize)
		rl.DrawText(line, (screenW-w)/2, y, hudFontSize, rl.RayWhite)
		y += hudLineHeight
	}

	if h.alertText != "" {
		if time.Now().After(h.alertUntil) {
			h.alertText = ""
		} else {
			w := rl.MeasureText(h.alertText, hudFontSize)
			x := (screenW - w) / 2
			ay := screenH / 3
			rl.DrawRectangle(x-hudPadding, ay-hudPadding/2, w+2*hudPadding, hudLineHeight+hudPadding, rl.NewColor(0, 0, 0, 180))
			rl.DrawText(h.alertText, x, ay, hudFontSize, rl.Orange)
		}
	}

	h.drawStats(screenW)

	ly := screenH - hudPadding - int32(len(lines)+1)*(logFontSize+2)
	for _, line := range lines {
		rl.DrawText(line, hudPadding, ly, logFontSize, rl.LightGray)
		ly += logFontSize + 2
	}
	rl.DrawText(helpText, hudPadding, ly, logFontSize, rl.Gray)
}

// drawStats renders FPS and heap usage at the top right. Text is only
// recomputed every updateInterval frames.
func (h *hud) drawStats(screenW int32) {
	if !h.showFPS {
		return
	}
	h.frameCount++
	if h.frameCount%updateInterval == 0 || h.lastFpsText == "" {
		h.lastFpsText = fmt.Sprintf("FPS: %d", rl.GetFPS())
		runtime.ReadMemStats(&h.lastMemStats)
		h.lastMemText = fmt.Sprintf("Mem: %.2f MiB", float64(h.lastMemStats.Alloc)/(1024*1024))
	}
	y := int32(hudPadding)
	for _, text := range []string{h.lastFpsText, h.lastMemText} {
		w := rl.MeasureText(text, hudFontSize)
		rl.DrawText(text, screenW-w-hudPadding, y, hudFontSize, rl.Green)
		y += hudLineHeight
	}
}
