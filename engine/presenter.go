package engine

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/Zyko0/go-sdl3/sdl"
	"github.com/Zyko0/go-sdl3/ttf"

	"github.com/gtosh4/mindwand/probe"
	"github.com/gtosh4/mindwand/session"
)

const CrossSize = 20

// Noise field in degrees, centred on the screen.
const (
	noiseFieldW = 25
	noiseFieldH = 15
)

// SDLPresenter implements session.Presenter on an SDL renderer.
type SDLPresenter struct {
	cfg      *Config
	renderer *sdl.Renderer
	font     *ttf.Font
	cache    *TextureCache
	rng      *rand.Rand
}

func NewSDLPresenter(cfg *Config, renderer *sdl.Renderer, font *ttf.Font, cache *TextureCache, rng *rand.Rand) *SDLPresenter {
	return &SDLPresenter{cfg: cfg, renderer: renderer, font: font, cache: cache, rng: rng}
}

func (p *SDLPresenter) clear() {
	bg := p.cfg.BGColor
	p.renderer.SetDrawColor(bg.R, bg.G, bg.B, bg.A)
	p.renderer.Clear()
}

// toScreen converts degrees from the centre (y up) to pixels.
func (p *SDLPresenter) toScreen(pos session.Position) (float32, float32) {
	x := float32(p.cfg.ScreenWidth)/2 + float32(pos.X)*p.cfg.PixelsPerDegree
	y := float32(p.cfg.ScreenHeight)/2 - float32(pos.Y)*p.cfg.PixelsPerDegree
	return x, y
}

func (p *SDLPresenter) drawFixationCross() {
	c := p.cfg.FixationColor
	p.renderer.SetDrawColor(c.R, c.G, c.B, c.A)
	mx, my := float32(p.cfg.ScreenWidth)/2, float32(p.cfg.ScreenHeight)/2
	p.renderer.RenderLine(mx-CrossSize, my, mx+CrossSize, my)
	p.renderer.RenderLine(mx, my-CrossSize, mx, my+CrossSize)
}

func (p *SDLPresenter) drawNoise() {
	c := p.cfg.TextColor
	p.renderer.SetDrawColor(c.R, c.G, c.B, c.A)
	ppd := p.cfg.PixelsPerDegree
	x0 := float32(p.cfg.ScreenWidth)/2 - noiseFieldW*ppd/2
	y0 := float32(p.cfg.ScreenHeight)/2 - noiseFieldH*ppd/2
	for i := 0; i < p.cfg.NoiseDots; i++ {
		dot := sdl.FRect{
			X: x0 + p.rng.Float32()*noiseFieldW*ppd,
			Y: y0 + p.rng.Float32()*noiseFieldH*ppd,
			W: 2,
			H: 2,
		}
		p.renderer.RenderFillRect(&dot)
	}
}

func (p *SDLPresenter) drawPlacement(pl session.Placement) {
	entry, err := p.cache.Get(p.renderer, pl.Image)
	if err != nil || entry.Texture == nil {
		return
	}
	size := float32(session.ImageSize) * p.cfg.PixelsPerDegree
	w, h := size, size
	if entry.W > entry.H && entry.W > 0 {
		h = size * entry.H / entry.W
	} else if entry.H > 0 {
		w = size * entry.W / entry.H
	}
	cx, cy := p.toScreen(pl.Pos)
	dst := sdl.FRect{X: cx - w/2, Y: cy - h/2, W: w, H: h}
	p.renderer.RenderTexture(entry.Texture, nil, &dst)
}

// keyName normalises SDL key names ("Return", "Space", "Keypad 3") to the
// lower-case names used in result files.
func keyName(e *sdl.Event) string {
	name := strings.ToLower(e.KeyboardEvent().Key.KeyName())
	return strings.TrimPrefix(name, "keypad ")
}

func isQuit(e *sdl.Event) bool {
	return e.Type == sdl.EVENT_QUIT ||
		(e.Type == sdl.EVENT_KEY_DOWN && e.KeyboardEvent().Key == sdl.K_ESCAPE)
}

func (p *SDLPresenter) ShowMessage(text string) error {
	p.clear()
	renderCentered(p.renderer, p.font, text, p.cfg.ScreenWidth, float32(p.cfg.ScreenHeight)/2, p.cfg.TextColor)
	p.renderer.Present()

	for {
		var event sdl.Event
		if err := sdl.WaitEvent(&event); err != nil {
			return fmt.Errorf("wait event: %w", err)
		}
		if isQuit(&event) {
			return session.ErrQuit
		}
		if event.Type == sdl.EVENT_KEY_DOWN {
			return nil
		}
	}
}

func (p *SDLPresenter) ShowFixation(hold time.Duration) error {
	p.clear()
	p.drawFixationCross()
	p.renderer.Present()

	end := sdl.Ticks() + uint64(hold.Milliseconds())
	for sdl.Ticks() < end {
		var ev sdl.Event
		for sdl.PollEvent(&ev) {
			if isQuit(&ev) {
				return session.ErrQuit
			}
		}
		sdl.Delay(1)
	}
	return nil
}

// Search shows the display until return or space is pressed. RT is measured
// from the first presented frame.
func (p *SDLPresenter) Search(placements []session.Placement) (session.Response, error) {
	var onset uint64
	for {
		var ev sdl.Event
		for sdl.PollEvent(&ev) {
			if isQuit(&ev) {
				return session.Response{}, session.ErrQuit
			}
			if ev.Type != sdl.EVENT_KEY_DOWN || onset == 0 {
				continue
			}
			key := keyName(&ev)
			if key == session.KeyPresent || key == session.KeyAbsent {
				rt := sdl.Ticks() - onset
				return session.Response{Key: key, RT: time.Duration(rt) * time.Millisecond}, nil
			}
		}

		p.clear()
		for _, pl := range placements {
			p.drawPlacement(pl)
		}
		p.drawNoise()
		p.renderer.Present()
		if onset == 0 {
			onset = sdl.Ticks()
		}
		if !p.cfg.VSync {
			sdl.Delay(1)
		}
	}
}

// AskRating shows prompt above a numbered scale. A digit key selects a value,
// return confirms it.
func (p *SDLPresenter) AskRating(prompt string, scale probe.Scale) (float64, error) {
	selected := -1
	for {
		p.drawRating(prompt, scale, selected)

		var event sdl.Event
		if err := sdl.WaitEvent(&event); err != nil {
			return 0, fmt.Errorf("wait event: %w", err)
		}
		if isQuit(&event) {
			return 0, session.ErrQuit
		}
		if event.Type != sdl.EVENT_KEY_DOWN {
			continue
		}
		key := keyName(&event)
		if key == session.KeyPresent && selected >= 0 {
			return float64(selected), nil
		}
		if v, err := strconv.Atoi(key); err == nil && v >= scale.Low && v <= scale.High {
			selected = v
		}
	}
}

func (p *SDLPresenter) drawRating(prompt string, scale probe.Scale, selected int) {
	p.clear()
	w, h := float32(p.cfg.ScreenWidth), float32(p.cfg.ScreenHeight)
	renderCentered(p.renderer, p.font, prompt, p.cfg.ScreenWidth, h*0.3, p.cfg.TextColor)

	c := p.cfg.TextColor
	lineY := h * 0.6
	left, right := w*0.2, w*0.8
	p.renderer.SetDrawColor(c.R, c.G, c.B, c.A)
	p.renderer.RenderLine(left, lineY, right, lineY)

	n := scale.High - scale.Low
	for i := 0; i <= n; i++ {
		x := left
		if n > 0 {
			x = left + (right-left)*float32(i)/float32(n)
		}
		value := scale.Low + i
		p.renderer.SetDrawColor(c.R, c.G, c.B, c.A)
		p.renderer.RenderLine(x, lineY-10, x, lineY+10)
		if value == selected {
			mark := sdl.FRect{X: x - 8, Y: lineY - 8, W: 16, H: 16}
			p.renderer.SetDrawColor(200, 0, 0, 255)
			p.renderer.RenderFillRect(&mark)
		}
		label := strconv.Itoa(value)
		lw, _ := textSize(p.font, label)
		renderText(p.renderer, p.font, label, x-lw/2, lineY+16, c)
	}
	renderCentered(p.renderer, p.font, scale.Anchor, p.cfg.ScreenWidth, lineY+80, c)
	p.renderer.Present()
}
