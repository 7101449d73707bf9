package services

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"
)

var recommendationsTemplate = template.Must(template.New("recommendations").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Recommandations Coopleo</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <table cellpadding="0" cellspacing="0" border="0" width="100%">
        <tr>
            <td>
                <img src="{{.LogoURL}}" alt="Coopleo Logo" style="display: block; width: 180px; margin: 0 auto 30px;" />
                <h1 style="color: #333; text-align: center;">Bonjour{{if .Name}} {{.Name}}{{end}},</h1>
                <p style="font-size: 16px; margin-bottom: 20px;">
                    Voici les recommandations finales suite à notre échange{{if .Topic}} pro-actif et centré sur <strong>{{.Topic}}</strong>{{end}} :
                </p>
                <div style="background-color: #f5f5f5; padding: 20px; border-radius: 8px; margin-bottom: 30px;">
                    <h2 style="color: #333; margin-bottom: 15px;">Recommandations finales</h2>
                    {{- if .Items}}
                    <ul style="padding-left: 20px;">
                        {{- range .Items}}
                        <li style="margin-bottom: 10px;">{{.}}</li>
                        {{- end}}
                    </ul>
                    {{- else}}
                    <pre style="white-space: pre-wrap; font-family: inherit;">{{.Raw}}</pre>
                    {{- end}}
                </div>
                <p style="font-size: 16px; margin-bottom: 30px; text-align: center;">
                    Merci encore pour notre conversation. Vous pouvez me faire part de vos résultats en cliquant sur le bouton ci-dessous 👇
                </p>
                <table cellpadding="0" cellspacing="0" border="0" width="100%">
                    <tr>
                        <td align="center">
                            <a href="{{.ContinueURL}}"
                               style="display: inline-block; background-color: #000; color: #fff; padding: 12px 24px; text-decoration: none; border-radius: 30px; font-weight: bold; text-align: center;">
                                Continuer votre session
                            </a>
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>
`))

type recommendationsView struct {
	LogoURL     string
	Name        string
	Topic       string
	Items       []string
	Raw         string
	ContinueURL string
}

// RenderRecommendationsEmail builds the French recommendations email body.
func RenderRecommendationsEmail(baseURL string, msg RecommendationsEmail) (string, error) {
	view := recommendationsView{
		LogoURL:     baseURL + "/static/coopleo-logo.svg",
		Name:        strings.TrimSpace(msg.Name),
		Topic:       strings.TrimSpace(msg.Topic),
		Items:       RecommendationItems(msg.FinalRecommendations),
		Raw:         strings.TrimSpace(msg.FinalRecommendations),
		ContinueURL: continueURL(baseURL, msg),
	}

	var buf bytes.Buffer
	if err := recommendationsTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func continueURL(baseURL string, msg RecommendationsEmail) string {
	if msg.ConversationID == "" {
		return baseURL + "/"
	}
	link := baseURL + "/continue/" + url.PathEscape(msg.ConversationID)
	if msg.ContinueToken != "" {
		link += "?token=" + url.QueryEscape(msg.ContinueToken)
	}
	return link
}

// RecommendationItems returns the bullet lines ("• ...") of a recommendations
// text with the bullet removed.
func RecommendationItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "•") {
			continue
		}
		item := strings.TrimSpace(strings.TrimPrefix(line, "•"))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
