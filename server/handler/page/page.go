// Package page holds the HTML surface handlers: root redirect, login,
// admin listing, search, and the public config endpoint.
package page

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/indieinfra/tgfile/server/handler/common"
	"github.com/indieinfra/tgfile/server/resp"
	"github.com/indieinfra/tgfile/server/session"
	"github.com/indieinfra/tgfile/server/state"
	"github.com/indieinfra/tgfile/server/tmpl"
)

// HandleRoot sends the visitor to the uploader or the login page
// depending on session state.
func HandleRoot(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !st.Cfg.Auth.Enable || session.FromRequest(r, st.Cfg.Auth.Username) {
			http.Redirect(w, r, "/upload", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	})
}

// HandleLoginPage renders the login form.
func HandleLoginPage(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !st.Cfg.Auth.Enable {
			http.Redirect(w, r, "/upload", http.StatusFound)
			return
		}
		tmpl.Render(w, r, "login.html", nil)
	})
}

// HandleLogin verifies posted credentials and issues the session cookie.
func HandleLogin(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !st.Cfg.Auth.Enable {
			http.Redirect(w, r, "/upload", http.StatusFound)
			return
		}

		username := r.PostFormValue("username")
		password := r.PostFormValue("password")

		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(st.Cfg.Auth.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(password), []byte(st.Cfg.Auth.Password)) == 1
		if !userOK || !passOK {
			common.Logger(r).Infof("rejected login for %q", username)
			w.WriteHeader(http.StatusUnauthorized)
			tmpl.Render(w, r, "login.html", map[string]any{"Error": "wrong username or password"})
			return
		}

		session.SetCookie(w, username, st.Cfg.Auth.SessionDays)
		http.Redirect(w, r, "/upload", http.StatusFound)
	})
}

// HandleAdmin renders the file listing page.
func HandleAdmin(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		files, err := st.Catalog.List(r.Context(), 0, 0)
		if err != nil {
			common.Logger(r).Errorf("listing failed: %v", err)
			http.Error(w, "listing failed", http.StatusInternalServerError)
			return
		}

		tmpl.Render(w, r, "admin.html", map[string]any{"Files": files})
	})
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Files []common.FileInfo `json:"files"`
}

// HandleSearch answers POST /search with a JSON {query} body.
func HandleSearch(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			resp.WriteHttpError(w, http.StatusBadRequest, "a query string is required")
			return
		}

		files, err := st.Catalog.SearchByName(r.Context(), req.Query)
		if err != nil {
			common.LogAndWriteError(w, r, "search", err)
			return
		}

		resp.WriteOK(w, searchResponse{Files: common.FileInfoList(files)})
	})
}

type configResponse struct {
	MaxSizeMB  int  `json:"maxSizeMB"`
	EnableAuth bool `json:"enableAuth"`
	LoggedIn   bool `json:"loggedIn"`
}

// HandleConfig exposes the client-relevant limits and auth state to the
// uploader page. With auth disabled every visitor counts as logged in.
func HandleConfig(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loggedIn := true
		if st.Cfg.Auth.Enable {
			loggedIn = session.FromRequest(r, st.Cfg.Auth.Username)
		}

		resp.WriteOK(w, configResponse{
			MaxSizeMB:  st.Cfg.Upload.MaxSizeMB,
			EnableAuth: st.Cfg.Auth.Enable,
			LoggedIn:   loggedIn,
		})
	})
}
