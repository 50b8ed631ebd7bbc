package http

import (
	"net/http"

	"finvault/internal/api"
	"finvault/internal/core"
	"finvault/internal/log"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessions.Current(r); ok {
		Redirect(homePath).Write(w)
		return
	}
	s.renderer.render(w, r, http.StatusOK, pageLogin, loginPage{page: page{Title: "Login"}})
}

// handleLogin validates the credentials locally, exchanges them for a
// token and establishes the session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAuth)

	email := r.Form.Get("email")
	password := r.Form.Get("password")
	data := loginPage{page: page{Title: "Login"}, Email: email}

	if err := core.ValidateLogin(email, password); err != nil {
		data.Error = err.Error()
		s.renderer.render(w, r, http.StatusUnprocessableEntity, pageLogin, data)
		return
	}

	res, err := s.backend.Login(ctx, email, password)
	if err != nil {
		logger.WarnContext(ctx, "Login failed", log.FieldOperation, log.OpLogin, log.FieldError, err)
		data.Error = api.UserMessage(err, "Login failed")
		s.renderer.render(w, r, backendStatus(err), pageLogin, data)
		return
	}

	if _, err := s.sessions.Establish(w, r, res.Token, res.User.ID.String()); err != nil {
		log.NewStructuredLogger(logger).LogError(ctx, "Establish session failed", err, log.OpLogin, nil)
		data.Error = "Login failed"
		s.renderer.render(w, r, http.StatusInternalServerError, pageLogin, data)
		return
	}

	logger.InfoContext(ctx, "User logged in", log.FieldOperation, log.OpLogin, log.FieldUserID, res.User.ID.String())
	Redirect(homePath).Write(w)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessions.Current(r); ok {
		Redirect(homePath).Write(w)
		return
	}
	s.renderer.render(w, r, http.StatusOK, pageRegister, registerPage{
		page:        page{Title: "Register"},
		MinPassword: core.MinPasswordLength,
	})
}

// handleRegister creates the account, then signs the new user in with
// the same credentials so the session holds a real token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAuth)

	name := sanitizeInput(r.Form.Get("name"))
	email := r.Form.Get("email")
	password := r.Form.Get("password")
	data := registerPage{
		page:        page{Title: "Register"},
		Name:        name,
		Email:       email,
		MinPassword: core.MinPasswordLength,
	}

	if err := core.ValidateRegistration(name, email, password); err != nil {
		data.Error = err.Error()
		s.renderer.render(w, r, http.StatusUnprocessableEntity, pageRegister, data)
		return
	}

	reg, err := s.backend.Register(ctx, name, email, password)
	if err != nil {
		logger.WarnContext(ctx, "Registration failed", log.FieldOperation, log.OpRegister, log.FieldError, err)
		data.Error = api.UserMessage(err, "Registration failed")
		s.renderer.render(w, r, backendStatus(err), pageRegister, data)
		return
	}

	res, err := s.backend.Login(ctx, email, password)
	if err == nil {
		_, err = s.sessions.Establish(w, r, res.Token, res.User.ID.String())
	}
	if err != nil {
		// The account exists; the user can still sign in by hand.
		logger.WarnContext(ctx, "Sign in after registration failed", log.FieldOperation, log.OpRegister, log.FieldError, err)
		s.renderer.render(w, r, http.StatusOK, pageLogin, loginPage{
			page:  page{Title: "Login", Success: "Registration succeeded. Please login."},
			Email: email,
		})
		return
	}

	logger.InfoContext(ctx, "User registered", log.FieldOperation, log.OpRegister, log.FieldUserID, res.User.ID.String())
	msg := reg.Message
	if msg == "" {
		msg = "Registration successful!"
	}
	setFlash(w, msg, s.cookieSecure)
	Redirect(homePath).Write(w)
}

// handleLogout drops the session and returns to the login screen. It is
// safe to call without a session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if sess, ok := s.sessions.Current(r); ok {
		s.profiles.Delete(sess.ID)
	}
	if err := s.sessions.Clear(w, r); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentAuth).WarnContext(ctx, "Clear session failed",
			log.FieldOperation, log.OpLogout, log.FieldError, err)
	}
	Redirect(loginPath).Write(w)
}
