package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"slices"

	"github.com/bobmcallan/markmentum-portal/internal/common"
	"github.com/bobmcallan/markmentum-portal/internal/dashboard"
	"github.com/bobmcallan/markmentum-portal/internal/report"
)

// Research Pack outcomes reported to the PackObserver.
const (
	PackOK      = "ok"
	PackEmpty   = "empty"
	PackNone    = "none"
	PackError   = "error"
	PackLimited = "limited"
)

const noModulesWarning = "Select at least one module to generate a Research Pack."

// PackObserver receives one call per Research Pack request.
type PackObserver interface {
	ObservePack(outcome string)
}

// ResearchPackHandler serves the Research Pack form and generates packs.
type ResearchPackHandler struct {
	dash      *DashboardHandler
	logger    *common.Logger
	registry  *report.Registry
	assetsDir string
	observer  PackObserver
}

// NewResearchPackHandler creates the Research Pack handler. Render contexts
// come from dash so cache and timezone settings match the pages.
func NewResearchPackHandler(dash *DashboardHandler, registry *report.Registry, assetsDir string, logger *common.Logger) *ResearchPackHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &ResearchPackHandler{
		dash:      dash,
		logger:    logger,
		registry:  registry,
		assetsDir: assetsDir,
	}
}

// SetObserver registers a pack outcome observer.
func (h *ResearchPackHandler) SetObserver(obs PackObserver) {
	h.observer = obs
}

func (h *ResearchPackHandler) observe(outcome string) {
	if h.observer != nil {
		h.observer.ObservePack(outcome)
	}
}

// Choice is one checkbox on the Research Pack form.
type Choice struct {
	Field   string
	Value   string
	Label   string
	Checked bool
}

// ModuleView is one module block on the Research Pack form.
type ModuleView struct {
	Key        string
	Label      string
	Caption    string
	Preview    string
	Selected   bool
	SetField   string
	Timeframes []Choice
	Toggles    []Choice
}

// ServeHTTP routes GET to the form and POST to preview or generation.
func (h *ResearchPackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.showForm(w, r, h.dash.renderContext(r), http.StatusOK, nil, "")
	case http.MethodPost:
		h.handleSubmit(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ResearchPackHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	form := r.PostForm
	selected := h.registry.Selected(form)
	// Built once per request; each render context flushes under clear_on_render.
	rc := h.dash.renderContext(r)

	if form.Get("action") == "preview" {
		h.showForm(w, r, rc, http.StatusOK, form, "")
		return
	}
	if len(selected) == 0 {
		h.observe(PackNone)
		h.showForm(w, r, rc, http.StatusBadRequest, form, noModulesWarning)
		return
	}

	opts := make(map[string]report.Options, len(selected))
	for _, key := range selected {
		if m, ok := h.registry.Get(key); ok {
			opts[key] = m.Configure(form)
		}
	}

	env := &report.Env{Context: rc, AssetsDir: h.assetsDir}
	pack, err := h.registry.Generate(env, selected, opts)
	switch {
	case errors.Is(err, report.ErrNothingGenerated):
		h.observe(PackEmpty)
		h.showForm(w, r, rc, http.StatusOK, form, report.NothingGeneratedWarning)
		return
	case err != nil:
		h.observe(PackError)
		h.logger.Error().
			Str("member_id", common.MemberID(r.Context())).
			Strs("modules", selected).
			Err(err).
			Msg("Research pack generation failed")
		h.showForm(w, r, rc, http.StatusInternalServerError, form, "The Research Pack could not be generated. Please try again.")
		return
	}

	h.observe(PackOK)
	h.logger.Info().
		Str("member_id", common.MemberID(r.Context())).
		Str("file", pack.Filename).
		Strs("skipped", pack.Skipped).
		Msg("Research pack delivered")
	setAttachment(w, "application/pdf", pack.Filename)
	w.Write(pack.PDF)
}

// showForm renders the form. form is nil before the first submission.
func (h *ResearchPackHandler) showForm(w http.ResponseWriter, r *http.Request, rc *dashboard.Context, status int, form url.Values, warning string) {
	selected := h.registry.Selected(form)

	var modules []ModuleView
	for _, m := range h.registry.Modules() {
		opts := m.Configure(form)
		f := m.Form()
		mv := ModuleView{
			Key:      m.Key(),
			Label:    m.Label(),
			Caption:  f.Caption,
			Selected: slices.Contains(selected, m.Key()),
			SetField: report.FieldName(m.Key(), "set"),
		}
		for _, tf := range f.Timeframes {
			mv.Timeframes = append(mv.Timeframes, Choice{
				Field:   report.FieldName(m.Key(), "tf"),
				Value:   tf,
				Label:   tf,
				Checked: slices.Contains(opts.Timeframes, tf),
			})
		}
		for _, tg := range f.Toggles {
			mv.Toggles = append(mv.Toggles, Choice{
				Field:   report.FieldName(m.Key(), tg.Name),
				Value:   "1",
				Label:   tg.Label,
				Checked: opts.On(tg.Name),
			})
		}
		if mv.Selected {
			mv.Preview = m.Preview(rc, opts)
		}
		modules = append(modules, mv)
	}

	data := h.dash.pages.pageData(r, "research-pack", "Research Pack")
	data["Modules"] = modules
	data["CanGenerate"] = len(selected) > 0
	data["Warning"] = warning
	h.dash.pages.render(w, r, status, "research_pack.html", data)
}
