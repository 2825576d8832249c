package httpapi

import (
	"html/template"
	"net/http"
)

// The callback endpoint is opened in a popup window; it reports the
// handshake outcome to the opener page and closes itself.
var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><title>Google Drive Upload</title></head>
<body>
<p>{{.Message}}</p>
<script>
if (window.opener) {
	window.opener.postMessage({type: {{.Type}}, message: {{.Message}}}, "*");
}
window.close();
</script>
</body>
</html>
`))

type callbackResult struct {
	Type    string
	Message string
}

// handleDriveCallback completes the OAuth handshake. The upload itself is
// started in the background; this page only reports whether the handshake
// succeeded.
func (s *Server) handleDriveCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	result := callbackResult{Type: "success", Message: "Authorization complete. Your upload has started."}
	if code == "" || state == "" {
		result = callbackResult{Type: "error", Message: "Missing authorization code or state."}
	} else if err := s.uploads.Callback(r.Context(), code, state); err != nil {
		s.logger.Warn().Err(err).Msg("drive callback failed")
		result = callbackResult{Type: "error", Message: "Authorization failed. Please try again."}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := callbackPage.Execute(w, result); err != nil {
		s.logger.Error().Err(err).Msg("failed to render callback page")
	}
}
