package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/snipboard/internal/assets"
	"github.com/hpungsan/snipboard/internal/capture"
	"github.com/hpungsan/snipboard/internal/clip"
	"github.com/hpungsan/snipboard/internal/engine"
	"github.com/hpungsan/snipboard/internal/errors"
	"github.com/hpungsan/snipboard/internal/gateway"
)

// Handlers contains the HTTP route handlers for the JSON API.
type Handlers struct {
	engine  *engine.Engine
	gw      *gateway.Local
	cache   *assets.URLCache
	version string
}

// HandleClipList handles GET /api/clips. Optional query parameters
// section, q, tag, and sort update the view state before listing, so
// the response matches what the board shows.
func (h *Handlers) HandleClipList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("section") {
		h.engine.SetActiveSection(q.Get("section"))
		h.gw.SetActiveSection(q.Get("section"))
	}
	if q.Has("q") {
		h.engine.SetSearchQuery(q.Get("q"))
	}
	if q.Has("tag") {
		h.engine.SetTagFilter(q.Get("tag"))
	}
	if q.Has("sort") {
		h.engine.SetSortMode(q.Get("sort"))
	}

	clips := h.engine.VisibleClips()
	writeJSON(w, http.StatusOK, map[string]any{
		"clips":   clips,
		"section": h.engine.ActiveSection(),
	})
}

// clipDetail is a clip plus its markdown fields rendered to HTML and
// resolved screenshot URLs.
type clipDetail struct {
	clip.Clip
	TextHTML       template.HTML `json:"textHtml"`
	NotesHTML      template.HTML `json:"notesHtml,omitempty"`
	ScreenshotURLs []string      `json:"screenshotUrls,omitempty"`
}

// HandleClipDetail handles GET /api/clips/{id}.
func (h *Handlers) HandleClipDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var found *clip.Clip
	for _, c := range h.engine.Clips() {
		if c.ID == id {
			cc := c
			found = &cc
			break
		}
	}
	if found == nil {
		writeError(w, errors.NewNotFound(id))
		return
	}

	detail := clipDetail{
		Clip:     *found,
		TextHTML: renderMarkdown(found.Text),
	}
	if found.Notes != "" {
		detail.NotesHTML = renderMarkdown(found.Notes)
	}
	for _, filename := range found.Screenshots {
		if url, ok := h.cache.URL(r.Context(), filename); ok {
			detail.ScreenshotURLs = append(detail.ScreenshotURLs, url)
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

// saveClipRequest is the POST /api/clips body.
type saveClipRequest struct {
	Clip   clip.Clip `json:"clip"`
	Mirror bool      `json:"mirror"`
}

// HandleClipSave handles POST /api/clips — create or update a clip.
func (h *Handlers) HandleClipSave(w http.ResponseWriter, r *http.Request) {
	var req saveClipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewInvalidRequest("malformed request body"))
		return
	}

	saved, err := h.engine.Persist(r.Context(), req.Clip, gateway.SaveOptions{Mirror: req.Mirror})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleClipDelete handles DELETE /api/clips/{id}. The client confirms
// before calling; a locked section still blocks with 423.
func (h *Handlers) HandleClipDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.engine.Delete(r.Context(), clip.Clip{ID: id}, nil); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// orderRequest names the dragged item and the drop target.
type orderRequest struct {
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
}

// HandleClipOrder handles POST /api/clips/order.
func (h *Handlers) HandleClipOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SourceID == "" {
		writeError(w, errors.NewInvalidRequest("sourceId is required"))
		return
	}
	h.engine.ReorderClips(r.Context(), req.SourceID, req.TargetID)
	writeJSON(w, http.StatusOK, map[string]any{"clips": h.engine.Clips()})
}

// HandleSectionList handles GET /api/sections.
func (h *Handlers) HandleSectionList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tabs":        h.engine.Sections(),
		"activeTabId": h.engine.ActiveSection(),
	})
}

// HandleSectionCreate handles POST /api/sections.
func (h *Handlers) HandleSectionCreate(w http.ResponseWriter, r *http.Request) {
	var s clip.Section
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, errors.NewInvalidRequest("malformed request body"))
		return
	}
	if strings.TrimSpace(s.Name) == "" {
		writeError(w, errors.NewInvalidRequest("section name is required"))
		return
	}
	if err := h.gw.CreateSection(r.Context(), s); err != nil {
		writeError(w, err)
		return
	}
	if err := h.engine.RefreshSections(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tabs": h.engine.Sections()})
}

// HandleSectionPatch handles PATCH /api/sections/{id} — partial update
// of name, color, icon, export path, or lock state.
func (h *Handlers) HandleSectionPatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch gateway.SectionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, errors.NewInvalidRequest("malformed request body"))
		return
	}
	if err := h.gw.UpdateSection(r.Context(), id, patch); err != nil {
		writeError(w, err)
		return
	}
	if err := h.engine.RefreshSections(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tabs": h.engine.Sections()})
}

// HandleSectionDelete handles DELETE /api/sections/{id}. Member clips
// move to the inbox.
func (h *Handlers) HandleSectionDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.engine.Dispatch(r.Context(), engine.DeleteSection{ID: id})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleSectionOrder handles POST /api/sections/order.
func (h *Handlers) HandleSectionOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SourceID == "" {
		writeError(w, errors.NewInvalidRequest("sourceId is required"))
		return
	}
	h.engine.ReorderSections(r.Context(), req.SourceID, req.TargetID)
	writeJSON(w, http.StatusOK, map[string]any{"tabs": h.engine.Sections()})
}

// HandleSectionActivate handles POST /api/sections/active.
func (h *Handlers) HandleSectionActivate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, errors.NewInvalidRequest("id is required"))
		return
	}
	h.engine.SetActiveSection(req.ID)
	h.gw.SetActiveSection(req.ID)
	writeJSON(w, http.StatusOK, map[string]string{"activeTabId": req.ID})
}

// HandleScreenshotGet handles GET /screenshots/{filename} — stream the
// stored raster.
func (h *Handlers) HandleScreenshotGet(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	data, err := h.gw.Screenshot(r.Context(), filename)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// screenshotSaveRequest carries base64-encoded rasters keyed by
// filename.
type screenshotSaveRequest struct {
	Items []gateway.ScreenshotItem `json:"items"`
}

// HandleScreenshotSave handles POST /api/screenshots.
func (h *Handlers) HandleScreenshotSave(w http.ResponseWriter, r *http.Request) {
	var req screenshotSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		writeError(w, errors.NewInvalidRequest("items are required"))
		return
	}
	saved, err := h.gw.SaveScreenshot(r.Context(), req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, s := range saved {
		h.cache.Invalidate(s.Filename)
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": saved})
}

// HandleCapture handles POST /api/capture — intake from the browser
// extension. The draft lands in the section named by ?section,
// defaulting to the inbox.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	var payload capture.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, errors.NewInvalidRequest("malformed request body"))
		return
	}

	sectionID := r.URL.Query().Get("section")
	if sectionID == "" {
		sectionID = clip.InboxSectionID
	}
	draft, err := capture.Draft(payload, sectionID)
	if err != nil {
		writeError(w, err)
		return
	}

	saved, err := h.engine.Persist(r.Context(), draft, gateway.SaveOptions{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleHealth handles GET /api/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are out; nothing useful left to do.
		return
	}
}

// writeError maps a structured error onto an HTTP status and a JSON
// body; anything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	var se *errors.SnipError
	if stderrors.As(err, &se) {
		writeJSON(w, se.Status, map[string]any{
			"error": map[string]any{"code": se.Code, "message": se.Message},
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error": map[string]any{"code": errors.ErrInternal, "message": "internal error"},
	})
}
