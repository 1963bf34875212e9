package api

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"path"

	"github.com/denzelpenzel/activation/internal/models"
	"github.com/denzelpenzel/activation/internal/services"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const msgSessionExpired = "Your activation session has expired, please open the activation link again"

// activatePageHandler validates the token from the query string and renders
// the activation page for the resulting flow.
func (s *Server) activatePageHandler(ctx *fasthttp.RequestCtx) {
	token := string(ctx.QueryArgs().Peek("token"))

	flow := s.flowService.Start(ctx, token)
	view := s.flowService.Render(flow)

	if view.ShowForm {
		session, err := s.sessionService.Issue(flow)
		if err != nil {
			s.logger.Error("Failed to issue flow session", zap.Error(err))
			s.renderPage(ctx, fasthttp.StatusInternalServerError, models.View{
				ShowTokenError: true,
				TokenError:     "Internal server error",
			})
			return
		}
		view.FlowSession = session
		view.Requirements = services.EvaluatePassword("")
	}

	s.renderPage(ctx, fasthttp.StatusOK, view)
}

// activateSubmitHandler handles the activation form submission
func (s *Server) activateSubmitHandler(ctx *fasthttp.RequestCtx) {
	args := ctx.PostArgs()
	session := string(args.Peek("flow_session"))

	flow, err := s.sessionService.Restore(session)
	if err != nil {
		s.renderPage(ctx, fasthttp.StatusBadRequest, models.View{
			ShowTokenError: true,
			TokenError:     msgSessionExpired,
		})
		return
	}

	form := models.ActivationForm{
		EmployeeID:           string(args.Peek("employeeId")),
		Password:             string(args.Peek("password")),
		PasswordConfirmation: string(args.Peek("passwordConfirmation")),
		PersonalEmail:        string(args.Peek("personalEmail")),
		Consent:              isChecked(args.Peek("consent")),
	}

	status := fasthttp.StatusOK
	if err := s.flowService.Submit(ctx, flow, form); err != nil {
		status = fasthttp.StatusConflict
		if errors.Is(err, services.ErrSubmissionInFlight) {
			flow.InlineError = services.MsgSubmissionInFlight
		} else {
			flow.InlineError = err.Error()
		}
		flow.State = models.StateSubmitError
	}

	view := s.flowService.Render(flow)
	if view.Redirect != "" {
		ctx.Redirect(view.Redirect, fasthttp.StatusSeeOther)
		return
	}

	if flow.State == models.StateSubmitError && status == fasthttp.StatusOK {
		status = fasthttp.StatusUnprocessableEntity
	}

	req := form.Request(flow.Token)
	view.FlowSession = session
	view.EmployeeID = req.EmployeeID
	view.PersonalEmail = req.PersonalEmail
	// Password inputs come back empty, so the indicators start over
	view.Requirements = services.EvaluatePassword("")
	view.Match = services.CheckMatch("", "")

	s.renderPage(ctx, status, view)
}

// passwordCheckHandler returns the live requirement and match indicators
func (s *Server) passwordCheckHandler(ctx *fasthttp.RequestCtx) {
	var req models.PasswordCheckRequest
	if err := s.parseJSONBody(ctx, &req); err != nil {
		s.sendErrorResponse(ctx, fasthttp.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	s.sendSuccessResponse(ctx, services.CheckPassword(req))
}

// successPageHandler renders the fixed success page
func (s *Server) successPageHandler(ctx *fasthttp.RequestCtx) {
	s.renderTemplate(ctx, fasthttp.StatusOK, "success", nil)
}

// staticHandler serves embedded stylesheets and scripts
func (s *Server) staticHandler(ctx *fasthttp.RequestCtx) {
	name, _ := ctx.UserValue("filepath").(string)
	name = path.Clean("/" + name)[1:]

	data, err := fs.ReadFile(s.static, name)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ctx.SetContentType(contentType)
	ctx.Response.Header.Set("Cache-Control", "public, max-age=3600")
	ctx.SetBody(data)
}

func (s *Server) renderPage(ctx *fasthttp.RequestCtx, status int, view models.View) {
	s.renderTemplate(ctx, status, "activate", view)
}

func (s *Server) renderTemplate(ctx *fasthttp.RequestCtx, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("Failed to render template", zap.String("template", name), zap.Error(err))
		ctx.Error("Internal server error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetStatusCode(status)
	ctx.SetBody(buf.Bytes())
}

// isChecked reports whether a checkbox value was submitted as checked
func isChecked(value []byte) bool {
	switch string(value) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
