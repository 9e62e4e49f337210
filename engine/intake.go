package engine

import (
	"fmt"

	"github.com/Zyko0/go-sdl3/sdl"
	"github.com/Zyko0/go-sdl3/ttf"

	"github.com/gtosh4/mindwand/trials"
)

// RunIntake shows the subject-information window. It returns false when the
// window is closed without starting.
func RunIntake(cfg *Config) bool {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		fmt.Printf("SDL_Init Error: %v\n", err)
		return false
	}
	defer sdl.Quit()

	if err := ttf.Init(); err != nil {
		fmt.Printf("TTF_Init Error: %v\n", err)
		return false
	}
	defer ttf.Quit()

	window, renderer, err := sdl.CreateWindowAndRenderer("Subject Info", 800, 750, 0)
	if err != nil {
		fmt.Printf("CreateWindowAndRenderer Error: %v\n", err)
		return false
	}
	defer window.Destroy()
	defer renderer.Destroy()

	fontPath := GetDefaultFontPath()
	if fontPath == "" {
		fmt.Println("Error: No default font found for subject intake")
		return false
	}
	guiFont, err := ttf.OpenFont(fontPath, 18)
	if err != nil {
		fmt.Printf("Failed to load GUI font: %v\n", err)
		return false
	}
	defer guiFont.Close()

	targets := trials.PresetNames()
	selected := 0
	for i, name := range targets {
		if name == cfg.Target {
			selected = i
			break
		}
	}

	fields := []struct {
		label string
		value *string
	}{
		{"Subject ID:", &cfg.SubjectID},
		{"Images Directory:", &cfg.ImagesDir},
		{"Trials Directory:", &cfg.TrialsDir},
	}
	focusBox := 0

	window.StartTextInput()
	defer window.StopTextInput()

	for done := false; !done; {
		var e sdl.Event
		for sdl.PollEvent(&e) {
			switch e.Type {
			case sdl.EVENT_QUIT:
				return false
			case sdl.EVENT_MOUSE_BUTTON_DOWN:
				me := e.MouseButtonEvent()
				mx, my := me.X, me.Y
				focusBox = -1
				for i := range fields {
					top := float32(50 + i*70)
					if mx >= 50 && mx <= 700 && my >= top && my <= top+30 {
						focusBox = i
					}
					if i > 0 && mx >= 710 && mx <= 780 && my >= top && my <= top+30 {
						target := fields[i].value
						cb := sdl.NewDialogFileCallback(func(fileList []string, filter int32) {
							if len(fileList) > 0 {
								*target = fileList[0]
							}
						})
						sdl.ShowOpenFolderDialog(cb, window, "", false)
					}
				}

				for i := range targets {
					if mx >= 50 && mx <= 300 && my >= float32(260+i*40) && my <= float32(290+i*40) {
						selected = i
					}
				}

				if mx >= 400 && mx <= 650 && my >= 260 && my <= 290 {
					cfg.Replay = !cfg.Replay
				}
				if mx >= 400 && mx <= 650 && my >= 310 && my <= 340 {
					cfg.Fullscreen = !cfg.Fullscreen
				}

				if mx >= 350 && mx <= 450 && my >= 650 && my <= 690 {
					if cfg.SubjectID != "" {
						cfg.Target = targets[selected]
						cfg.SaveCache()
						done = true
					}
				}
			case sdl.EVENT_TEXT_INPUT:
				if focusBox >= 0 {
					*fields[focusBox].value += e.TextInputEvent().Text
				}
			case sdl.EVENT_KEY_DOWN:
				if focusBox >= 0 && e.KeyboardEvent().Key == sdl.K_BACKSPACE {
					v := fields[focusBox].value
					if len(*v) > 0 {
						*v = (*v)[:len(*v)-1]
					}
				}
			}
		}

		renderer.SetDrawColor(240, 240, 240, 255)
		renderer.Clear()
		black := sdl.Color{R: 0, G: 0, B: 0, A: 255}

		for i, f := range fields {
			renderText(renderer, guiFont, f.label, 50, float32(20+i*70), black)

			renderer.SetDrawColor(255, 255, 255, 255)
			box := sdl.FRect{X: 50, Y: float32(50 + i*70), W: 650, H: 30}
			renderer.RenderFillRect(&box)
			if focusBox == i {
				renderer.SetDrawColor(0, 120, 255, 255)
			} else {
				renderer.SetDrawColor(180, 180, 180, 255)
			}
			renderer.RenderRect(&box)
			renderText(renderer, guiFont, *f.value, 55, float32(55+i*70), black)

			if i > 0 {
				renderer.SetDrawColor(200, 200, 200, 255)
				btn := sdl.FRect{X: 710, Y: float32(50 + i*70), W: 70, H: 30}
				renderer.RenderFillRect(&btn)
				renderer.SetDrawColor(0, 0, 0, 255)
				renderer.RenderRect(&btn)
				renderText(renderer, guiFont, "...", 735, float32(55+i*70), black)
			}
		}

		renderText(renderer, guiFont, "Target Category:", 50, 230, black)
		for i, name := range targets {
			drawCheckbox(renderer, guiFont, 50, float32(260+i*40), name, selected == i)
		}
		drawCheckbox(renderer, guiFont, 400, 260, "Replay recorded trials", cfg.Replay)
		drawCheckbox(renderer, guiFont, 400, 310, "Fullscreen mode", cfg.Fullscreen)

		// Start button
		if cfg.SubjectID != "" {
			renderer.SetDrawColor(0, 150, 0, 255)
		} else {
			renderer.SetDrawColor(150, 150, 150, 255)
		}
		startBtn := sdl.FRect{X: 350, Y: 650, W: 100, H: 40}
		renderer.RenderFillRect(&startBtn)
		renderText(renderer, guiFont, "START", 375, 660, sdl.Color{R: 255, G: 255, B: 255, A: 255})

		renderer.Present()
		sdl.Delay(10)
	}

	return true
}

func drawCheckbox(renderer *sdl.Renderer, font *ttf.Font, x, y float32, label string, checked bool) {
	renderer.SetDrawColor(255, 255, 255, 255)
	check := sdl.FRect{X: x, Y: y, W: 20, H: 20}
	renderer.RenderFillRect(&check)
	renderer.SetDrawColor(0, 0, 0, 255)
	renderer.RenderRect(&check)
	if checked {
		mark := sdl.FRect{X: x + 4, Y: y + 4, W: 12, H: 12}
		renderer.SetDrawColor(0, 150, 0, 255)
		renderer.RenderFillRect(&mark)
	}
	renderText(renderer, font, label, x+30, y, sdl.Color{R: 0, G: 0, B: 0, A: 255})
}
