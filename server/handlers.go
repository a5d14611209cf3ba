package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/draftmill/draftmill/automation"
	"github.com/draftmill/draftmill/docgen"
	"github.com/draftmill/draftmill/document"
	"github.com/draftmill/draftmill/llm"
	"github.com/draftmill/draftmill/mailer"
	"github.com/draftmill/draftmill/source"
)

const maxMultipartMemory = 8 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "OK")
}

// handleFullyAutomate runs the document-pack pipeline. Accepts either a
// JSON body or a multipart form with an optional requirementsFile part.
func (s *Server) handleFullyAutomate(w http.ResponseWriter, r *http.Request) {
	req, err := parseAutomationRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.orchestrator.Run(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func parseAutomationRequest(r *http.Request) (automation.Request, error) {
	if isMultipart(r) {
		return parseAutomationForm(r)
	}

	var body struct {
		RequirementsText   string   `json:"requirementsText"`
		RequirementsURL    string   `json:"requirementsUrl"`
		ProjectName        string   `json:"projectName"`
		JiraProjectKey     string   `json:"jiraProjectKey"`
		ConfluenceSpaceKey string   `json:"confluenceSpaceKey"`
		PriorityScheme     string   `json:"priorityScheme"`
		Labels             []string `json:"labels"`
		Publish            bool     `json:"publish"`

		ConfluenceBaseURL string `json:"confluenceBaseUrl"`
		JiraBaseURL       string `json:"jiraBaseUrl"`
		AtlassianDomain   string `json:"atlassianDomain"`
		AtlassianEmail    string `json:"atlassianEmail"`
		AtlassianToken    string `json:"atlassianToken"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		return automation.Request{}, err
	}

	return automation.Request{
		RequirementsText:   body.RequirementsText,
		RequirementsURL:    body.RequirementsURL,
		ProjectName:        body.ProjectName,
		JiraProjectKey:     body.JiraProjectKey,
		ConfluenceSpaceKey: body.ConfluenceSpaceKey,
		PriorityScheme:     body.PriorityScheme,
		Labels:             body.Labels,
		Publish:            body.Publish,
		Credentials: automation.CredentialOverrides{
			ContentBaseURL: body.ConfluenceBaseURL,
			IssueBaseURL:   body.JiraBaseURL,
			Domain:         body.AtlassianDomain,
			Email:          body.AtlassianEmail,
			Token:          body.AtlassianToken,
		},
	}, nil
}

func parseAutomationForm(r *http.Request) (automation.Request, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return automation.Request{}, automation.NewValidationError("invalid multipart form: " + err.Error())
	}

	req := automation.Request{
		RequirementsText:   r.FormValue("requirementsText"),
		RequirementsURL:    r.FormValue("requirementsUrl"),
		ProjectName:        r.FormValue("projectName"),
		JiraProjectKey:     r.FormValue("jiraProjectKey"),
		ConfluenceSpaceKey: r.FormValue("confluenceSpaceKey"),
		PriorityScheme:     r.FormValue("priorityScheme"),
		Publish:            parseBool(r.FormValue("publish")),
		Credentials: automation.CredentialOverrides{
			ContentBaseURL: r.FormValue("confluenceBaseUrl"),
			IssueBaseURL:   r.FormValue("jiraBaseUrl"),
			Domain:         r.FormValue("atlassianDomain"),
			Email:          r.FormValue("atlassianEmail"),
			Token:          r.FormValue("atlassianToken"),
		},
	}
	if labels := r.FormValue("labels"); labels != "" {
		req.Labels = splitCSV(labels)
	}

	name, data, err := readFormFile(r, "requirementsFile")
	if err != nil {
		return automation.Request{}, err
	}
	req.FileName = name
	req.FileData = data
	return req, nil
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(body.Prompt) == "" {
		s.writeError(w, r, automation.NewValidationError("prompt is required"))
		return
	}

	parsed, err := s.orchestrator.Draft(r.Context(), body.Prompt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}

// handleGenerateDocx fills a DOCX template with form fields. The
// template comes either from the templateDocx upload or from the named
// template store.
func (s *Server) handleGenerateDocx(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.writeError(w, r, automation.NewValidationError("invalid multipart form: "+err.Error()))
		return
	}

	template, err := s.resolveTemplate(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	fields := make(map[string]string)
	for key, values := range r.MultipartForm.Value {
		if key == "templateName" || len(values) == 0 {
			continue
		}
		fields[key] = values[0]
	}

	rendered, err := docgen.RenderDocx(template, fields)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAttachment(w, "generated.docx",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", rendered)
}

func (s *Server) resolveTemplate(r *http.Request) ([]byte, error) {
	_, data, err := readFormFile(r, "templateDocx")
	if err != nil {
		return nil, err
	}
	if data != nil {
		return data, nil
	}

	name := r.FormValue("templateName")
	if name == "" {
		return nil, automation.NewValidationError("provide a templateDocx upload or a templateName")
	}
	if s.templates == nil {
		return nil, automation.NewValidationError("no template store configured; upload a templateDocx instead")
	}
	template, ok := s.templates.Get(name)
	if !ok {
		return nil, automation.NewValidationError(fmt.Sprintf("unknown template %q (available: %s)",
			name, strings.Join(s.templates.Names(), ", ")))
	}
	return template, nil
}

func (s *Server) handleGenerateUserStories(w http.ResponseWriter, r *http.Request) {
	requirements, err := parseRequirementsInput(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(requirements) == "" {
		s.writeError(w, r, automation.NewValidationError("no requirements provided"))
		return
	}

	backlog, err := s.orchestrator.GenerateUserStories(r.Context(), requirements)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, backlog)
}

// handleUserStoriesXLSX converts a backlog payload into a spreadsheet.
func (s *Server) handleUserStoriesXLSX(w http.ResponseWriter, r *http.Request) {
	var backlog document.Backlog
	if err := decodeJSONBody(r, &backlog); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(backlog.Stories) == 0 {
		s.writeError(w, r, automation.NewValidationError("stories are required"))
		return
	}
	backlog = document.NormalizeBacklog(&backlog)

	var buf bytes.Buffer
	if err := docgen.WriteStoriesXLSX(&buf, backlog); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAttachment(w, "user-stories.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (s *Server) handleEmailDoc(w http.ResponseWriter, r *http.Request) {
	if s.mailer == nil || !s.mailer.Configured() {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "email is not configured"})
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.writeError(w, r, automation.NewValidationError("invalid multipart form: "+err.Error()))
		return
	}

	to := splitCSV(r.FormValue("to"))
	if len(to) == 0 {
		s.writeError(w, r, automation.NewValidationError("to is required"))
		return
	}
	name, data, err := readFormFile(r, "file")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if data == nil {
		s.writeError(w, r, automation.NewValidationError("file is required"))
		return
	}

	msg := mailer.Message{
		To:         to,
		Subject:    r.FormValue("subject"),
		Body:       r.FormValue("body"),
		Filename:   name,
		Attachment: data,
	}
	if msg.Subject == "" {
		msg.Subject = "Document: " + name
	}
	if err := s.mailer.Send(msg); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) handleRetroAnalyze(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Notes   string `json:"notes"`
		Metrics string `json:"metrics"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(body.Notes) == "" {
		s.writeError(w, r, automation.NewValidationError("notes are required"))
		return
	}

	analysis, err := s.orchestrator.AnalyzeRetro(r.Context(), body.Notes, body.Metrics)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleCodeReview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Files   map[string]string `json:"files"`
		Include []string          `json:"include"`
		Exclude []string          `json:"exclude"`
		Diff    string            `json:"diff"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(body.Files) == 0 && strings.TrimSpace(body.Diff) == "" {
		s.writeError(w, r, automation.NewValidationError("files or diff is required"))
		return
	}

	result, err := s.orchestrator.ReviewCode(r.Context(), body.Files, body.Include, body.Exclude, body.Diff)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Messages []llm.Message `json:"messages"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(body.Messages) == 0 {
		s.writeError(w, r, automation.NewValidationError("messages are required"))
		return
	}

	reply, err := s.orchestrator.Chat(r.Context(), body.Messages)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// parseRequirementsInput reads requirements text from JSON, form fields,
// or an uploaded file, whichever the caller sent.
func parseRequirementsInput(r *http.Request) (string, error) {
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return "", automation.NewValidationError("invalid multipart form: " + err.Error())
		}
		pasted := r.FormValue("requirementsText")
		name, data, err := readFormFile(r, "requirementsFile")
		if err != nil {
			return "", err
		}
		if data == nil {
			return pasted, nil
		}
		extracted, err := source.FromUpload(name, data)
		if err != nil {
			return "", err
		}
		return source.Combine(pasted, extracted), nil
	}

	var body struct {
		RequirementsText string `json:"requirementsText"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		return "", err
	}
	return body.RequirementsText, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func decodeJSONBody(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return automation.NewValidationError("invalid JSON body: " + err.Error())
	}
	return nil
}

// readFormFile returns (name, data) for an optional multipart file part,
// or ("", nil) when the part is absent.
func readFormFile(r *http.Request, field string) (string, []byte, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return "", nil, nil
		}
		return "", nil, automation.NewValidationError("reading " + field + ": " + err.Error())
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, automation.NewValidationError("reading " + field + ": " + err.Error())
	}
	return header.Filename, data, nil
}

func writeAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		// Client went away mid-download; nothing to do.
		return
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
