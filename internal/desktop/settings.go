package desktop

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/hpungsan/grabtext/internal/config"
	"github.com/hpungsan/grabtext/internal/ops"
)

// settingsView is the Settings tab: enter and save the backend API key.
type settingsView struct {
	win      fyne.Window
	cfg      *config.Config
	reloader ops.Reloader
	log      *zap.Logger

	status *widget.Label
	entry  *widget.Entry
}

func newSettingsView(win fyne.Window, cfg *config.Config, reloader ops.Reloader, log *zap.Logger) *settingsView {
	v := &settingsView{win: win, cfg: cfg, reloader: reloader, log: log}
	v.status = widget.NewLabel("")
	v.entry = widget.NewPasswordEntry()
	v.entry.SetPlaceHolder("Gemini API key")
	v.entry.OnSubmitted = func(string) { v.save() }
	v.update()
	return v
}

// Content returns the tab body.
func (v *settingsView) Content() fyne.CanvasObject {
	form := widget.NewForm(
		widget.NewFormItem("Backend", widget.NewLabel(v.cfg.Backend)),
		widget.NewFormItem("Model", widget.NewLabel(v.cfg.Model)),
		widget.NewFormItem("Config file", widget.NewLabel(v.cfg.Path())),
		widget.NewFormItem("Current key", v.status),
		widget.NewFormItem("New key", v.entry),
	)
	form.SubmitText = "Save"
	form.OnSubmit = v.save
	return container.NewVBox(form)
}

func (v *settingsView) save() {
	out, err := ops.SaveAPIKey(v.cfg, v.reloader, v.entry.Text)
	if err != nil {
		dialog.ShowError(err, v.win)
		return
	}
	v.log.Info("api key saved", zap.String("path", out.Path))
	v.entry.SetText("")
	v.update()
	dialog.ShowInformation("Settings", "API key saved.", v.win)
}

func (v *settingsView) update() {
	key := v.cfg.APIKey()
	if key == "" {
		v.status.SetText("not set")
		return
	}
	v.status.SetText(maskKey(key))
}

// maskKey shows only the last four characters of a secret.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "••••"
	}
	return "••••••••" + key[len(key)-4:]
}
