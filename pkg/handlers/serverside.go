package handlers

import (
	"bytes"
	"crypto/sha1"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/pbkdf2"

	"github.com/spencer-p/springtides/pkg/extreme"
	"github.com/spencer-p/springtides/pkg/log"
	"github.com/spencer-p/springtides/pkg/metrics"
	"github.com/spencer-p/springtides/pkg/springtide"
	"github.com/spencer-p/springtides/pkg/stats"
	"github.com/spencer-p/springtides/pkg/timetricks"
	"github.com/spencer-p/springtides/pkg/visualize"
)

const (
	sessionName    = "spring-tides"
	sessionStation = "station"
	sessionPolicy  = "policy"
	// See https://developer.chrome.com/blog/cookie-max-age-expires.
	defaultMaxAge = 60 * 60 * 24 * 400 // 400 days in seconds.

	// The index page shows this many days when no range is given.
	defaultSpan = 30
)

//go:embed static/index.template.html
var content embed.FS

// Sessions keeps a visitor's last station and policy in a signed, encrypted
// cookie.
type Sessions struct {
	store *sessions.CookieStore
}

// NewSessions derives the cookie keys. password is stretched with PBKDF2.
func NewSessions(sessionKey, password string) *Sessions {
	store := &sessions.CookieStore{
		Codecs: securecookie.CodecsFromPairs(
			[]byte(sessionKey),
			pbkdf2.Key([]byte(password), []byte{}, 4096, 32, sha1.New),
		),
		Options: &sessions.Options{
			Path:     "/",
			MaxAge:   defaultMaxAge,
			Secure:   true,
			HttpOnly: true,
		},
	}
	store.MaxAge(defaultMaxAge)
	return &Sessions{store: store}
}

func (s *Sessions) get(r *http.Request) *sessions.Session {
	// A cookie that fails to decode still yields a fresh session.
	session, _ := s.store.Get(r, sessionName)
	return session
}

type TemplateInput struct {
	Station  string
	Start    string
	End      string
	Policy   string
	Policies []string

	Error   string
	Result  *springtide.Result
	Rows    []Row
	Summary *stats.Summary
	Chart   template.HTML
}

type Row struct {
	Date  string
	Value string
	Note  string
}

// makeIndex serves a page with a query form and, once the form is filled in,
// the results rendered on the server.
func (s *Server) makeIndex() http.HandlerFunc {
	return s.makeIndexWithClock(clockwork.NewRealClock())
}

func (s *Server) makeIndexWithClock(clock clockwork.Clock) http.HandlerFunc {
	indexTemplate := template.Must(template.ParseFS(content, "static/index.template.html"))

	return func(w http.ResponseWriter, r *http.Request) {
		input := TemplateInput{
			Station: r.FormValue("station"),
			Start:   r.FormValue("start"),
			End:     r.FormValue("end"),
			Policy:  r.FormValue("policy"),
		}
		for _, p := range extreme.Policies() {
			input.Policies = append(input.Policies, p.String())
		}

		var session *sessions.Session
		if s.Sessions != nil {
			session = s.Sessions.get(r)
			metrics.ObservePageView(!session.IsNew)
			// Fill blanks from the last visit.
			if input.Station == "" {
				input.Station, _ = session.Values[sessionStation].(string)
			}
			if input.Policy == "" {
				input.Policy, _ = session.Values[sessionPolicy].(string)
			}
		}

		// Only run once the visitor has asked for something.
		if r.FormValue("start") != "" || r.FormValue("end") != "" {
			s.fillResult(r, &input)
		} else {
			today := timetricks.DateKeyOf(clock.Now().UTC())
			input.Start = today.String()
			input.End = today.AddDays(defaultSpan).String()
		}

		if session != nil && input.Error == "" && input.Station != "" {
			session.Values[sessionStation] = input.Station
			session.Values[sessionPolicy] = input.Policy
			if err := session.Save(r, w); err != nil {
				log.Warnw("failed to save session", "error", err)
			}
		}

		var page bytes.Buffer
		if err := indexTemplate.Execute(&page, input); err != nil {
			log.Errorw("failed to execute template", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Add("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write(page.Bytes())
	}
}

// fillResult runs the query described by input and renders it into input.
// Errors are shown on the page.
func (s *Server) fillResult(r *http.Request, input *TemplateInput) {
	req, err := springtide.ParseRequest(input.Station, input.Start, input.End, s.Stations, s.MaxRangeDays)
	if err != nil {
		input.Error = err.Error()
		return
	}
	policy, err := extreme.ParsePolicy(input.Policy)
	if err != nil {
		input.Error = err.Error()
		return
	}
	input.Station = string(req.Station)
	input.Policy = policy.String()

	res, err := s.Runner.WithPolicy(policy).Run(r.Context(), req)
	if err != nil && !errors.Is(err, stats.ErrEmptySeries) {
		input.Error = err.Error()
		return
	}
	input.Result = res

	for _, e := range res.Extremes {
		row := Row{Date: e.Date.Time().Format("Mon Jan 2 2006")}
		if e.OK {
			row.Value = level(e.Value)
		} else if e.Err != nil {
			row.Note = e.Err.Error()
		}
		input.Rows = append(input.Rows, row)
	}
	if res.Summary.Count > 0 {
		summary := res.Summary
		input.Summary = &summary
	}

	var chart bytes.Buffer
	if _, err := visualize.NewChart(res).Encode(&chart); err != nil {
		log.Warnw("failed to draw chart", "error", err)
	} else {
		input.Chart = template.HTML(chart.String())
	}
}

func level(v float64) string {
	return fmt.Sprintf("%.3f", v)
}
