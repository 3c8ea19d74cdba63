package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/KaramelBytes/chartloom/internal/chart"
	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/session"
	"github.com/gin-gonic/gin"
)

// Line charts reveal one frame per frameMillis, capped at maxAnimateMillis.
const (
	frameMillis      = 50
	maxAnimateMillis = 4000
)

const uploadHint = "Please upload a new CSV file."

type kindOption struct {
	Name     string
	Label    string
	Selected bool
}

type table struct {
	Header []string
	Rows   [][]string
}

type page struct {
	MaxUploadMB int
	Error       string

	Table     *table
	Columns   []string
	Kinds     []kindOption
	Selection chart.Request

	Result         *chart.Result
	Animate        bool
	AnimateMillis  int
	ChartURL       string
	EfficiencyURL  string
	AverageRPM     string
	AverageRPMNote string
}

// statusFor maps dataset errors to HTTP codes.
func statusFor(err error) int {
	var (
		pe *dataset.ParseError
		me *dataset.MissingColumnError
		te *dataset.TypeCoercionError
		fe *dataset.InvalidFieldError
	)
	switch {
	case errors.As(err, &pe), errors.As(err, &me), errors.As(err, &te):
		return http.StatusUnprocessableEntity
	case errors.As(err, &fe):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorMessage(err error) string {
	if statusFor(err) == http.StatusUnprocessableEntity {
		return fmt.Sprintf("Could not prepare the dataset: %v. %s", err, uploadHint)
	}
	return err.Error()
}

func (s *Server) session(c *gin.Context) (*session.Session, bool) {
	id, err := c.Cookie(CookieName)
	if err != nil || id == "" {
		return nil, false
	}
	return s.store.Get(id)
}

func (s *Server) setCookie(c *gin.Context, id string) {
	maxAge := 0
	if ttl := s.cfg.SessionTTL(); ttl > 0 {
		maxAge = int(ttl.Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, id, maxAge, "/", "", false, true)
}

// selection overlays the x, y and kind query parameters on base.
func selection(c *gin.Context, base chart.Request) (chart.Request, error) {
	req := base
	if x, ok := c.GetQuery("x"); ok {
		req.X = x
	}
	if y, ok := c.GetQuery("y"); ok {
		req.Y = y
	}
	if k, ok := c.GetQuery("kind"); ok {
		kind, err := chart.ParseKind(k)
		if err != nil {
			return req, err
		}
		req.Kind = kind
	}
	return req, nil
}

func (s *Server) index(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		s.html(c, http.StatusOK, s.newPage())
		return
	}
	s.show(c, sess, sess.Selection)
}

func (s *Server) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload()+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		p := s.newPage()
		if errors.As(err, &tooBig) {
			p.Error = fmt.Sprintf("File exceeds the %dMB upload limit.", s.maxUpload()>>20)
			s.html(c, http.StatusRequestEntityTooLarge, p)
			return
		}
		p.Error = "A CSV file is required."
		s.html(c, http.StatusBadRequest, p)
		return
	}
	if fh.Size > s.maxUpload() {
		p := s.newPage()
		p.Error = fmt.Sprintf("File exceeds the %dMB upload limit.", s.maxUpload()>>20)
		s.html(c, http.StatusRequestEntityTooLarge, p)
		return
	}
	f, err := fh.Open()
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "open upload: %v", err)
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "read upload: %v", err)
		return
	}

	opt := s.prepare
	opt.Name = fh.Filename
	ds, err := dataset.Prepare(raw, opt)
	if err != nil {
		s.log.Warn("dataset rejected", "file", fh.Filename, "error", err)
		p := s.newPage()
		p.Error = errorMessage(err)
		s.html(c, statusFor(err), p)
		return
	}

	var sess *session.Session
	if old, ok := s.session(c); ok {
		sess = s.store.Replace(old.ID, ds)
	} else {
		sess = s.store.Create(ds)
	}
	s.log.Info("dataset prepared", "session", sess.ID, "file", fh.Filename, "rows", ds.Rows, "columns", len(ds.Columns()))
	s.setCookie(c, sess.ID)
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (s *Server) dashboard(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	req, err := selection(c, sess.Selection)
	if err != nil {
		p := s.datasetPage(sess.Dataset, sess.Selection)
		p.Error = err.Error()
		s.html(c, http.StatusBadRequest, p)
		return
	}
	s.show(c, sess, req)
}

// show renders the full dashboard for req and remembers it as the session's selection.
func (s *Server) show(c *gin.Context, sess *session.Session, req chart.Request) {
	p := s.datasetPage(sess.Dataset, req)
	res, err := chart.Render(sess.Dataset, req)
	if err != nil {
		p.Error = errorMessage(err)
		s.html(c, statusFor(err), p)
		return
	}
	s.store.Select(sess.ID, req)

	q := chartQuery(req)
	p.Result = res
	p.ChartURL = "/chart.svg?" + q
	p.EfficiencyURL = "/efficiency.svg?" + q
	if n := len(res.Chart.Frames); n > 0 {
		p.Animate = true
		p.AnimateMillis = min(n*frameMillis, maxAnimateMillis)
	}
	p.AverageRPM = chart.AverageRPMSentence(sess.Dataset.AverageRPM)
	p.AverageRPMNote = chart.AverageRPMNote
	s.html(c, http.StatusOK, p)
}

func (s *Server) chartSVG(c *gin.Context) {
	s.svgEndpoint(c, func(r *chart.Result) chart.Figure { return r.Chart })
}

func (s *Server) efficiencySVG(c *gin.Context) {
	s.svgEndpoint(c, func(r *chart.Result) chart.Figure { return r.Efficiency })
}

func (s *Server) svgEndpoint(c *gin.Context, pick func(*chart.Result) chart.Figure) {
	sess, ok := s.session(c)
	if !ok {
		c.String(http.StatusNotFound, "no dataset uploaded")
		return
	}
	req, err := selection(c, sess.Selection)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	res, err := chart.Render(sess.Dataset, req)
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	var buf bytes.Buffer
	if err := s.svg.Render(&buf, pick(res)); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "render chart: %v", err)
		return
	}
	c.Header("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, s.svg.ContentType(), buf.Bytes())
}

func (s *Server) columns(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no dataset uploaded"})
		return
	}
	ds := sess.Dataset
	cols := make([]gin.H, 0, len(ds.Columns()))
	for _, col := range ds.Columns() {
		cols = append(cols, gin.H{"name": col.Name, "kind": col.Kind, "missing": col.Missing()})
	}
	kinds := make([]gin.H, 0, len(chart.Kinds()))
	for _, k := range chart.Kinds() {
		kinds = append(kinds, gin.H{"name": k.String(), "label": k.Label()})
	}
	c.JSON(http.StatusOK, gin.H{
		"name":        ds.Name,
		"rows":        ds.Rows,
		"columns":     cols,
		"kinds":       kinds,
		"selection":   sess.Selection,
		"average_rpm": dataset.Float(ds.AverageRPM),
		"average_rpm_sentences": []string{
			chart.AverageRPMSentence(ds.AverageRPM),
			chart.AverageRPMNote,
		},
	})
}

func (s *Server) chartJSON(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no dataset uploaded"})
		return
	}
	var req chart.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := chart.Render(sess.Dataset, req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	s.store.Select(sess.ID, req)
	c.JSON(http.StatusOK, res)
}

func (s *Server) newPage() page {
	return page{MaxUploadMB: int(s.maxUpload() >> 20)}
}

func (s *Server) datasetPage(ds *dataset.Dataset, req chart.Request) page {
	p := s.newPage()
	p.Table = buildTable(ds)
	p.Columns = ds.ColumnNames()
	p.Selection = req
	for _, k := range chart.Kinds() {
		p.Kinds = append(p.Kinds, kindOption{Name: k.String(), Label: k.Label(), Selected: k == req.Kind})
	}
	return p
}

// buildTable renders every row of ds; the page scrolls rather than truncates.
func buildTable(ds *dataset.Dataset) *table {
	t := &table{Header: ds.ColumnNames()}
	cols := ds.Columns()
	t.Rows = make([][]string, ds.Rows)
	for i := 0; i < ds.Rows; i++ {
		row := make([]string, len(cols))
		for j, col := range cols {
			row[j] = col.Format(i)
		}
		t.Rows[i] = row
	}
	return t
}

func chartQuery(req chart.Request) string {
	return url.Values{"x": {req.X}, "y": {req.Y}, "kind": {req.Kind.String()}}.Encode()
}

func (s *Server) html(c *gin.Context, status int, p page) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "render page: %v", err)
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
