package web

import "html/template"

const layoutTmpl = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>DeepWatch - {{.Title}}</title>
<style>
	body { font-family: Arial, sans-serif; margin: 0; background-color: #10141b; color: #d6dbe4; }
	header { background: #1a2230; padding: 12px 24px; display: flex; align-items: center; gap: 24px; }
	header .brand { font-weight: bold; letter-spacing: 2px; color: #6fb3ff; }
	header a { color: #d6dbe4; text-decoration: none; margin-right: 16px; }
	header a:hover { color: #6fb3ff; }
	header .who { margin-left: auto; color: #8892a6; }
	main { padding: 24px; max-width: 960px; margin: 0 auto; }
	table { border-collapse: collapse; width: 100%; }
	th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid #2a3447; }
	tr:hover td { background: #18202e; }
	a.row-link { color: #6fb3ff; text-decoration: none; }
	.error { background: #3a1c22; border: 1px solid #6e2a36; padding: 10px 14px; border-radius: 4px; margin-bottom: 16px; }
	.notice { background: #1c3a2a; border: 1px solid #2a6e46; padding: 10px 14px; border-radius: 4px; margin-bottom: 16px; }
	.box { background: #1a2230; padding: 24px; border-radius: 8px; max-width: 360px; margin: 48px auto; }
	form { display: flex; flex-direction: column; }
	label { margin-bottom: 4px; color: #8892a6; }
	input { padding: 8px; margin-bottom: 14px; border: 1px solid #2a3447; border-radius: 4px; background: #10141b; color: #d6dbe4; }
	button { background-color: #2a5fa8; color: white; padding: 10px; border: none; border-radius: 4px; cursor: pointer; }
	button:hover { background-color: #3a74c4; }
	code.secret { font-size: 1.2em; color: #ffd479; }
</style>
</head>
<body>
{{if .Username}}
<header>
	<span class="brand">DEEPWATCH</span>
	<nav>
		<a href="/agents">Agents</a>
		<a href="/locations">Locations</a>
		<a href="/operations">Operations</a>
		<a href="/files">Files</a>
		{{if eq .Role "admin"}}<a href="/logs">Activity</a>{{end}}
	</nav>
	<span class="who">{{.Username}} ({{.Role}})</span>
	<form action="/logout" method="post" style="margin:0"><button type="submit">Logout</button></form>
</header>
{{end}}
<main>
{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
{{if .Notice}}<div class="notice">{{.Notice}}</div>{{end}}
{{template "content" .}}
</main>
</body>
</html>`

const loginTmpl = `{{define "content"}}
<div class="box">
	<h2>Sign in</h2>
	<form action="/login" method="post">
		<label for="username">Username</label>
		<input type="text" id="username" name="username" required>
		<label for="password">Password</label>
		<input type="password" id="password" name="password" required>
		<label for="totp_code">Authenticator code</label>
		<input type="text" id="totp_code" name="totp_code" inputmode="numeric" autocomplete="one-time-code" required>
		<button type="submit">Login</button>
	</form>
	<p><a href="/register" style="color:#6fb3ff">Register an account</a></p>
</div>
{{end}}`

const registerTmpl = `{{define "content"}}
<div class="box">
	<h2>Register</h2>
	<form action="/register" method="post">
		<label for="username">Username</label>
		<input type="text" id="username" name="username" required>
		<label for="password">Password</label>
		<input type="password" id="password" name="password" required>
		<label for="regtoken">Registration token</label>
		<input type="password" id="regtoken" name="regtoken" required>
		<button type="submit">Register</button>
	</form>
	<p><a href="/login" style="color:#6fb3ff">Back to login</a></p>
</div>
{{end}}`

const provisionedTmpl = `{{define "content"}}
<div class="box">
	<h2>Account created</h2>
	<p>Add this secret to your authenticator app, then sign in with a generated code:</p>
	<p><code class="secret">{{.Secret}}</code></p>
	<p style="word-break:break-all;color:#8892a6">{{.URI}}</p>
	<p><a href="/login" style="color:#6fb3ff">Continue to login</a></p>
</div>
{{end}}`

const listTmpl = `{{define "content"}}
<h2>{{.Title}}</h2>
{{if .Rows}}
<table>
	<tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
	{{range .Rows}}
	<tr>
		{{$link := .Link}}
		{{range $i, $c := .Cells}}
		<td>{{if and (eq $i 0) $link}}<a class="row-link" href="{{$link}}">{{$c}}</a>{{else}}{{$c}}{{end}}</td>
		{{end}}
	</tr>
	{{end}}
</table>
{{else}}
<p>No records visible at your clearance.</p>
{{end}}
{{end}}`

const detailTmpl = `{{define "content"}}
<h2>{{.Title}}</h2>
<table>
	{{range .Fields}}
	<tr><th style="width:220px">{{.Name}}</th><td>{{.Value}}</td></tr>
	{{end}}
</table>
<p><a href="{{.BackLink}}" style="color:#6fb3ff">Back</a></p>
{{end}}`

func parsePage(content string) *template.Template {
	t := template.Must(template.New("layout").Parse(layoutTmpl))
	return template.Must(t.Parse(content))
}

var (
	loginPage       = parsePage(loginTmpl)
	registerPage    = parsePage(registerTmpl)
	provisionedPage = parsePage(provisionedTmpl)
	listPage        = parsePage(listTmpl)
	detailPage      = parsePage(detailTmpl)
)
