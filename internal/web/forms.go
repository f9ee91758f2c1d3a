package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"mwiki/internal/content"
	"mwiki/internal/wiki"
)

// URLForm names a page for create and move. The cleaned url must be free.
type URLForm struct {
	URL string `json:"url"`
}

func (f URLForm) Validate(ctx context.Context, w *wiki.Wiki) error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.URL,
			validation.Required.Error("url is required"),
			validation.Length(1, 255),
			validation.By(func(value any) error {
				url := content.CleanURL(value.(string))
				if url == "" {
					return validation.NewError("validation_url_empty", "url is empty after cleaning")
				}
				taken, err := w.Exists(ctx, url)
				if err != nil {
					return validation.NewInternalError(err)
				}
				if taken {
					return validation.NewError("validation_url_exists", `the url "`+url+`" exists already`)
				}
				return nil
			}),
		),
	)
}

type EditorForm struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
}

func (f EditorForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Title, validation.Required.Error("title is required")),
		validation.Field(&f.Content, validation.Required.Error("content is required")),
	)
}

type SearchForm struct {
	Term           string `json:"term"`
	IgnoreCase     bool   `json:"ignore_case"`
	SearchByAuthor bool   `json:"search_by_author"`
}

func (f SearchForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Term, validation.Required.Error("search term is required")),
	)
}

func parseURLForm(r *http.Request) URLForm {
	return URLForm{URL: strings.TrimSpace(r.PostForm.Get("url"))}
}

func parseEditorForm(r *http.Request) EditorForm {
	return EditorForm{
		Title:   strings.TrimSpace(r.PostForm.Get("title")),
		Content: r.PostForm.Get("content"),
		Tags:    strings.TrimSpace(r.PostForm.Get("tags")),
	}
}

func parseSearchForm(r *http.Request) SearchForm {
	return SearchForm{
		Term:           strings.TrimSpace(r.Form.Get("term")),
		IgnoreCase:     formBool(r.Form.Get("ignore_case")),
		SearchByAuthor: formBool(r.Form.Get("search_by_author")),
	}
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "on", "true", "yes", "y":
		return true
	}
	return false
}

// fieldErrors flattens a validation result into per-field messages keyed by
// form field name. Internal errors are returned as is.
func fieldErrors(err error) (map[string]string, error) {
	if err == nil {
		return nil, nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return nil, internal.InternalError()
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return map[string]string{"form": err.Error()}, nil
	}
	out := make(map[string]string, len(errs))
	for field, fieldErr := range errs {
		if errors.As(fieldErr, &internal) {
			return nil, internal.InternalError()
		}
		out[field] = fieldErr.Error()
	}
	return out, nil
}
