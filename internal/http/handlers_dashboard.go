package http

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"finvault/internal/core"
	"finvault/internal/log"
	"finvault/internal/session"
)

const navCookie = "finvault_nav"

// currentSession returns the session placed in the context by requireSession.
func currentSession(r *http.Request) session.Session {
	sess, _ := session.FromContext(r.Context())
	return sess
}

// newShell builds the dashboard frame. name is the profile display name,
// possibly blank.
func (s *Server) newShell(r *http.Request, name string) shell {
	collapsed := false
	if c, err := r.Cookie(navCookie); err == nil && c.Value == "collapsed" {
		collapsed = true
	}
	return shell{
		UserName:  name,
		Path:      r.URL.Path,
		Collapsed: collapsed,
		Nav:       navFor(r.URL.Path),
	}
}

// profileName returns the display name for sess, fetching it once per
// session. Failures are logged and leave the name blank: the shell renders
// without it, and the next page tries again.
func (s *Server) profileName(ctx context.Context, sess session.Session) string {
	if name, ok := s.profiles.Get(sess.ID); ok {
		return name
	}
	profile, err := s.backend.GetProfile(ctx, sess.Token)
	if err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentDashboard).WarnContext(ctx, "Failed to fetch profile",
			log.FieldOperation, log.OpProfile, log.FieldError, err)
		return ""
	}
	s.profiles.Set(sess.ID, profile.Name)
	return profile.Name
}

// dashboardPage fills the shared page fields for a dashboard view.
func (s *Server) dashboardPage(r *http.Request, title string) page {
	sess := currentSession(r)
	return page{Title: title, Shell: s.newShell(r, s.profileName(r.Context(), sess))}
}

// handleHome shows the welcome banner with a summary of the user's
// transactions. Profile and transactions are fetched concurrently.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := currentSession(r)

	var (
		name string
		txns []core.Transaction
	)
	// A failed list must not cancel the profile fetch, so no group context.
	var g errgroup.Group
	g.Go(func() error {
		name = s.profileName(ctx, sess)
		return nil
	})
	g.Go(func() error {
		var err error
		txns, err = s.backend.ListTransactions(ctx, sess.Token)
		return err
	})
	err := g.Wait()

	data := homePage{page: page{
		Title:   "Dashboard",
		Success: popFlash(w, r),
		Shell:   s.newShell(r, name),
	}}

	status := http.StatusOK
	if err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentDashboard).WarnContext(ctx, "Failed to fetch transactions",
			log.FieldOperation, log.OpList, log.FieldError, err)
		data.Error = "Failed to fetch transactions."
		status = backendStatus(err)
		if isUnauthorized(err) {
			data.Error = "Your session has expired. Please logout and login again."
		}
	} else {
		sum := core.Summarize(txns)
		data.HasSummary = true
		data.Income = core.FormatAmount(sum.Income)
		data.Expense = core.FormatAmount(sum.Expense)
		data.Balance = core.FormatAmount(sum.Balance())
		data.Count = sum.Count

		recent := core.SortNewestFirst(txns)
		if len(recent) > recentLimit {
			recent = recent[:recentLimit]
		}
		data.Recent = newTransactionCards(recent, s.backend.TransactionsBaseURL())
	}

	s.renderer.render(w, r, status, pageHome, data)
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.renderer.render(w, r, http.StatusOK, pageAbout, s.dashboardPage(r, "About"))
}

// handleNavToggle flips the side navigation between collapsed and
// expanded, then returns to the page the toggle was pressed on.
func (s *Server) handleNavToggle(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	value := "collapsed"
	if c, err := r.Cookie(navCookie); err == nil && c.Value == "collapsed" {
		value = "expanded"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     navCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	Redirect(safeReturnPath(r.Form.Get("return"))).Write(w)
}
