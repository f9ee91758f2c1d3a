package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"mwiki/internal/content"
	"mwiki/internal/wiki"
)

const (
	homeURL = "home"
	bioURL  = "bio"
)

func pageURL(r *http.Request) string {
	return strings.Trim(r.PathValue("url"), "/")
}

func (s *Server) view(w http.ResponseWriter, r *http.Request, title, tmpl string) ViewData {
	return ViewData{
		Title:           title,
		ContentTemplate: tmpl,
		User:            Identity(r.Context()),
		Flashes:         s.flashes.Pop(flashKey(w, r)),
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed", "request_id", RequestID(r.Context()), "path", r.URL.Path, "err", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	data := s.view(w, r, "Not found", "not_found")
	s.views.RenderPage(w, http.StatusNotFound, data)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	page, err := s.wiki.Get(r.Context(), homeURL)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if page != nil {
		s.renderPage(w, r, page)
		return
	}
	s.views.RenderPage(w, http.StatusOK, s.view(w, r, "Welcome", "welcome"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	pages, err := s.wiki.Index(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := s.view(w, r, "Index", "index")
	data.Pages = summarize(pages)
	s.views.RenderPage(w, http.StatusOK, data)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	identity := Identity(r.Context())
	pages, err := s.wiki.GetAll(r.Context(), identity)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	bio, err := s.wiki.Get(r.Context(), bioURL)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := s.view(w, r, "Profile", "profile")
	data.Page = newPageView(bio)
	data.AuthoredPages = summarize(pages)
	s.views.RenderPage(w, http.StatusOK, data)
}

func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/") {
		http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
		return
	}
	page, err := s.wiki.GetOrNotFound(r.Context(), pageURL(r))
	if errors.Is(err, wiki.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.renderPage(w, r, page)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, page *wiki.Page) {
	data := s.view(w, r, page.Title(), "page")
	data.Page = newPageView(page)
	s.views.RenderPage(w, http.StatusOK, data)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	data := s.view(w, r, "Create page", "create")
	if r.Method == http.MethodGet {
		s.views.RenderPage(w, http.StatusOK, data)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := parseURLForm(r)
	errs, err := fieldErrors(form.Validate(r.Context(), s.wiki))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if errs != nil {
		data.Form = map[string]string{"url": form.URL}
		data.Errors = errs
		s.views.RenderPage(w, http.StatusUnprocessableEntity, data)
		return
	}
	http.Redirect(w, r, "/edit/"+content.CleanURL(form.URL)+"/", http.StatusSeeOther)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	url := pageURL(r)
	page, err := s.wiki.Get(r.Context(), url)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := s.view(w, r, "Edit "+url, "edit")
	data.Page = newPageView(page)
	data.Form = map[string]string{"url": url}
	if page != nil {
		data.Form["title"] = page.Title()
		data.Form["content"] = page.Content()
		data.Form["tags"] = page.Tags()
	}
	if r.Method == http.MethodGet {
		s.views.RenderPage(w, http.StatusOK, data)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := parseEditorForm(r)
	errs, _ := fieldErrors(form.Validate())
	if errs != nil {
		data.Form["title"] = form.Title
		data.Form["content"] = form.Content
		data.Form["tags"] = form.Tags
		data.Errors = errs
		s.views.RenderPage(w, http.StatusUnprocessableEntity, data)
		return
	}
	page, err = s.savePage(r, url, page, form)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.flash(w, r, "success", fmt.Sprintf("%q was saved.", page.Title()))
	http.Redirect(w, r, content.DisplayPath(url), http.StatusSeeOther)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	url := pageURL(r)
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "errors": map[string]string{"form": err.Error()}})
		return
	}
	form := parseEditorForm(r)
	if errs, _ := fieldErrors(form.Validate()); errs != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"success": false, "errors": errs})
		return
	}
	page, err := s.wiki.Get(r.Context(), url)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if _, err := s.savePage(r, url, page, form); err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// savePage applies the editor form to page, or to a new draft when page is
// nil, and saves it as the current identity.
func (s *Server) savePage(r *http.Request, url string, page *wiki.Page, form EditorForm) (*wiki.Page, error) {
	if page == nil {
		draft, ok, err := s.wiki.GetBare(r.Context(), url)
		if err != nil {
			return nil, err
		}
		if !ok {
			if draft, err = s.wiki.GetOrNotFound(r.Context(), url); err != nil {
				return nil, err
			}
		}
		page = draft
	}
	page.SetTitle(form.Title)
	page.SetContent(form.Content)
	page.SetTags(form.Tags)
	if err := page.Save(r.Context(), Identity(r.Context()), true); err != nil {
		return nil, err
	}
	slog.Info("page saved", "request_id", RequestID(r.Context()), "url", url, "author", page.Author())
	return page, nil
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res := s.wiki.Processor().Process(r.PostForm.Get("body"))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(res.HTML))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	url := pageURL(r)
	page, err := s.wiki.GetOrNotFound(r.Context(), url)
	if errors.Is(err, wiki.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := s.view(w, r, "Move "+page.Title(), "move")
	data.Page = newPageView(page)
	data.Form = map[string]string{"url": url}
	if r.Method == http.MethodGet {
		s.views.RenderPage(w, http.StatusOK, data)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := parseURLForm(r)
	data.Form["url"] = form.URL
	errs, err := fieldErrors(form.Validate(r.Context(), s.wiki))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if errs != nil {
		data.Errors = errs
		s.views.RenderPage(w, http.StatusUnprocessableEntity, data)
		return
	}
	newURL := content.CleanURL(form.URL)
	err = s.wiki.Move(r.Context(), url, newURL)
	if errors.Is(err, wiki.ErrTargetExists) {
		data.Errors = map[string]string{"url": fmt.Sprintf("the url %q exists already", newURL)}
		s.views.RenderPage(w, http.StatusConflict, data)
		return
	}
	if errors.Is(err, wiki.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, content.DisplayPath(newURL), http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	url := pageURL(r)
	page, err := s.wiki.GetOrNotFound(r.Context(), url)
	if errors.Is(err, wiki.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if _, err := s.wiki.Delete(r.Context(), url); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.flash(w, r, "success", fmt.Sprintf("Page %q was deleted.", page.Title()))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.wiki.GetTags(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := s.view(w, r, "Tags", "tags")
	data.Tags = tagCounts(tags)
	s.views.RenderPage(w, http.StatusOK, data)
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	pages, err := s.wiki.IndexByTag(r.Context(), name)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := s.view(w, r, "Tag: "+name, "tag")
	data.Tag = name
	data.Pages = summarize(pages)
	s.views.RenderPage(w, http.StatusOK, data)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	data := s.view(w, r, "Search", "search")
	data.IgnoreCase = true
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.Method == http.MethodGet && !r.Form.Has("term") {
		s.views.RenderPage(w, http.StatusOK, data)
		return
	}

	form := parseSearchForm(r)
	data.SearchTerm = form.Term
	data.IgnoreCase = form.IgnoreCase
	data.SearchByAuthor = form.SearchByAuthor
	if errs, _ := fieldErrors(form.Validate()); errs != nil {
		data.Errors = errs
		s.views.RenderPage(w, http.StatusUnprocessableEntity, data)
		return
	}

	var (
		results []*wiki.Page
		err     error
	)
	if form.SearchByAuthor {
		results, err = s.wiki.SearchByAuthor(r.Context(), form.Term)
	} else {
		var opts []wiki.SearchOption
		if !form.IgnoreCase {
			opts = append(opts, wiki.CaseSensitive())
		}
		results, err = s.wiki.Search(r.Context(), form.Term, opts...)
	}
	if errors.Is(err, wiki.ErrInvalidPattern) {
		data.Errors = map[string]string{"term": err.Error()}
		s.views.RenderPage(w, http.StatusUnprocessableEntity, data)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data.Searched = true
	data.Pages = summarize(results)
	s.views.RenderPage(w, http.StatusOK, data)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json", "err", err)
	}
}
