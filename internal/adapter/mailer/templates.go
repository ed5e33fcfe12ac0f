// internal/adapter/mailer/templates.go

package mailer

import "html/template"

const layoutStyle = `
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #FE2C55; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f4f4f4; }
        .button { display: inline-block; padding: 12px 30px; background-color: #FE2C55; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { text-align: center; padding: 20px; font-size: 12px; color: #666; }
        table { width: 100%; border-collapse: collapse; }
        td, th { padding: 6px; border-bottom: 1px solid #ddd; text-align: left; }
`

var magicLinkTemplate = template.Must(template.New("magic").Parse(`<!DOCTYPE html>
<html>
<head><style>` + layoutStyle + `</style></head>
<body>
    <div class="container">
        <div class="header"><h1>Welcome to TrendCatch</h1></div>
        <div class="content">
            <p>Click the button below to sign in and set up your alerts:</p>
            <a href="{{.Link}}" class="button">Sign in</a>
            <p>Or copy and paste this link into your browser:</p>
            <p style="word-break: break-all;">{{.Link}}</p>
            <p><strong>Note:</strong> This link expires in 1 hour.</p>
            <p>If you didn't request this, you can safely ignore this email.</p>
        </div>
        <div class="footer"><p>TrendCatch</p></div>
    </div>
</body>
</html>
`))

var alertTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<head><style>` + layoutStyle + `</style></head>
<body>
    <div class="container">
        <div class="header"><h1>A sound is taking off</h1></div>
        <div class="content">
            <h2>{{.Name}}</h2>
            <p>by {{if .Artist}}{{.Artist}}{{else}}Unknown artist{{end}}</p>
            <p>Velocity: <strong>{{printf "%+.0f" .Velocity}}%</strong> &middot; Uses: <strong>{{.Uses}}</strong></p>
            {{if .TikTokURL}}<a href="{{.TikTokURL}}" class="button">Open on TikTok</a>{{end}}
        </div>
        <div class="footer"><p>You receive this because realtime alerts are enabled in your TrendCatch settings.</p></div>
    </div>
</body>
</html>
`))

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head><style>` + layoutStyle + `</style></head>
<body>
    <div class="container">
        <div class="header"><h1>Your {{.Frequency}} trending sounds</h1></div>
        <div class="content">
            {{if .Sounds}}
            <table>
                <tr><th>Sound</th><th>Velocity</th><th>Uses</th></tr>
                {{range .Sounds}}
                <tr>
                    <td>{{if .TikTokURL}}<a href="{{.TikTokURL}}">{{.Name}}</a>{{else}}{{.Name}}{{end}}<br><small>{{.Artist}}</small></td>
                    <td>{{printf "%+.0f" .Velocity}}%</td>
                    <td>{{.LatestUses}}</td>
                </tr>
                {{end}}
            </table>
            {{else}}
            <p>No sounds crossed your thresholds this time.</p>
            {{end}}
        </div>
        <div class="footer"><p>Change how often you hear from us in your TrendCatch settings.</p></div>
    </div>
</body>
</html>
`))
