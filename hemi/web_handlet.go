// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Webapp dispatches requests to handlets. Handlets handle requests and give responses.

package hemi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// Handlet handles the request and gives a response if the request is handled.
// It must return synchronously with status, header fields and at most one content set in resp.
type Handlet interface {
	Handle(req *Request, resp *Response) (handled bool)
}

var handletCreators = xsync.NewMapOf[string, func(name string, webapp *Webapp) Handlet]() // indexed by handletSign

func RegisterHandlet(handletSign string, create func(name string, webapp *Webapp) Handlet) {
	if _, loaded := handletCreators.LoadOrStore(handletSign, create); loaded {
		BugExitln("handlet conflicts")
	}
}
func handletRegistered(handletSign string) bool {
	_, ok := handletCreators.Load(handletSign)
	return ok
}
func createHandlet(handletSign string, name string, webapp *Webapp) Handlet {
	if create, ok := handletCreators.Load(handletSign); ok {
		return create(name, webapp)
	}
	return nil
}

// Handlet_ is the parent for handlets which dispatch requests by method. Default methods give error pages.
type Handlet_ struct {
	// Assocs
	webapp *Webapp
	// States
	name string
}

func (h *Handlet_) OnCreate(name string, webapp *Webapp) {
	h.name = name
	h.webapp = webapp
}

func (h *Handlet_) Name() string    { return h.name }
func (h *Handlet_) Webapp() *Webapp { return h.webapp }

func (h *Handlet_) GET(req *Request, resp *Response)  { resp.SendNotFound() }
func (h *Handlet_) POST(req *Request, resp *Response) { resp.SendMethodNotAllowed() }
func (h *Handlet_) PUT(req *Request, resp *Response)  { resp.SendMethodNotAllowed() }

// methodHandlet is a handlet with a handle for each supported method.
type methodHandlet interface {
	GET(req *Request, resp *Response) // also handles HEAD
	POST(req *Request, resp *Response)
	PUT(req *Request, resp *Response)
}

// Dispatch calls the handle of handlet matching the method of req.
func (h *Handlet_) Dispatch(handlet methodHandlet, req *Request, resp *Response) {
	switch req.methodCode {
	case MethodGET, MethodHEAD:
		handlet.GET(req, resp)
	case MethodPOST:
		handlet.POST(req, resp)
	case MethodPUT:
		handlet.PUT(req, resp)
	default:
		resp.SendMethodNotAllowed()
	}
}

// Webapp routes requests to handlets by path.
type Webapp struct {
	// Parent
	Component_
	// Assocs
	server   *HTTPServer        // the server to which the webapp belongs
	routes   map[string]Handlet // path -> handlet
	fallback Handlet            // used if no route matches
	// States
	webRoot         string            // root dir for static files
	routeSigns      map[string]string // path -> handlet sign
	fallbackHandlet string            // sign of the fallback handlet
}

func (a *Webapp) onCreate(name string, server *HTTPServer) {
	a.MakeComp(name, server.props)
	a.server = server
	a.routes = make(map[string]Handlet)
}

func (a *Webapp) onConfigure() {
	// .webRoot
	a.ConfigureString("webRoot", &a.webRoot, func(value string) error {
		if value != "" {
			return nil
		}
		return errors.New(".webRoot has an invalid value")
	}, "public")
	a.webRoot = strings.TrimRight(absPath(a.webRoot), "/")

	// .routes
	a.routeSigns = map[string]string{"/test": "echo"}
	if v, ok := a.Find("routes"); ok {
		dict, ok := v.Dict()
		if !ok {
			UseExitln(".routes must be a dict")
		}
		a.routeSigns = make(map[string]string, len(dict))
		for path, vSign := range dict {
			sign, ok := vSign.String()
			if !ok || !handletRegistered(sign) || path == "" || path[0] != '/' {
				UseExitln("invalid route " + path + " in .routes")
			}
			a.routeSigns[path] = sign
		}
	}

	// .fallbackHandlet
	a.ConfigureString("fallbackHandlet", &a.fallbackHandlet, func(value string) error {
		if handletRegistered(value) {
			return nil
		}
		return errors.New(".fallbackHandlet has an unknown value")
	}, "static")
}
func (a *Webapp) onPrepare() {
	for path, sign := range a.routeSigns {
		if _, ok := a.routes[path]; !ok { // routes bound in code are kept
			a.routes[path] = createHandlet(sign, sign, a)
		}
	}
	a.fallback = createHandlet(a.fallbackHandlet, a.fallbackHandlet, a)
	if DebugLevel() >= 1 {
		Printf("webapp=%s webRoot=%s routes=%v fallback=%s\n", a.Name(), a.webRoot, a.routeSigns, a.fallbackHandlet)
	}
}

func (a *Webapp) WebRoot() string { return a.webRoot }

// Route binds path to handlet. It can be called before or after the webapp is prepared.
func (a *Webapp) Route(path string, handlet Handlet) { a.routes[path] = handlet }

// dispatch finds the handlet for req and lets it handle req.
func (a *Webapp) dispatch(req *Request, resp *Response) {
	handlet, ok := a.routes[req.path]
	if !ok {
		handlet = a.fallback
	}
	if handlet == nil || !handlet.Handle(req, resp) {
		resp.SendNotFound()
	}
}

// SendError makes resp an error page of status. Fields set before are removed.
func (r *Response) SendError(status int16) {
	page, ok := serverErrorPages[status]
	if !ok {
		status = StatusInternalServerError
		page = serverErrorPages[status]
	}
	var message string
	switch status {
	case StatusNotFound, StatusMethodNotAllowed, StatusLengthRequired, StatusPreconditionFailed, StatusContentTooLarge:
		message = fmt.Sprintf(page.message, htmlEscape(r.request.method), htmlEscape(r.request.uri))
	default:
		message = page.message
	}
	r.header.reset()
	r.status = status
	r.SetText(fmt.Sprintf(serverErrorTemplate, page.title, page.title[4:], message))
	r.header.Set(fieldContentType, string(bytesTypeHTMLUTF8))
	if page.close {
		r.header.Set(fieldConnection, stringClose)
	}
}

func (r *Response) SendBadRequest()           { r.SendError(StatusBadRequest) }
func (r *Response) SendNotFound()             { r.SendError(StatusNotFound) }
func (r *Response) SendMethodNotAllowed()     { r.SendError(StatusMethodNotAllowed) }
func (r *Response) SendPreconditionFailed()   { r.SendError(StatusPreconditionFailed) }
func (r *Response) SendContentTooLarge()      { r.SendError(StatusContentTooLarge) }
func (r *Response) SendUnsupportedMediaType() { r.SendError(StatusUnsupportedMediaType) }
func (r *Response) SendInternalServerError()  { r.SendError(StatusInternalServerError) }

// SendNotModified makes resp a 304 response without content. Validators set before are kept.
func (r *Response) SendNotModified() {
	r.status = StatusNotModified
	r.body = nil
	r.contentLength = 0
}

const serverErrorTemplate = `<!DOCTYPE html>
<html>
<head>
<title>%s</title>
</head>
<body>
<h1>%s</h1>
%s</body>
</html>
`

// serverErrorPages holds the error pages. In messages, %[1]s is the method and %[2]s is the uri.
var serverErrorPages = func() map[int16]*serverErrorPage {
	pages := make(map[int16]*serverErrorPage)
	add := func(status int16, close bool, message string) {
		pages[status] = &serverErrorPage{title: httpStatusLine(status), message: message, close: close}
	}
	add(StatusBadRequest, true, "<p>return to <a href=\"/index.html\">index page</a>.</p>\n"+
		"<p>Your browser sent a request that\nthis server could not understand.</p>\n")
	add(StatusNotFound, false, "<p>The requested URL %[2]s was not found on this server.</p>\n"+
		"<p>return to <a href=\"/index.html\">index page</a>.</p>\n")
	add(StatusMethodNotAllowed, false, "<p>The requested method %[1]s is not allowed for the URL %[2]s.</p>\n")
	add(StatusRequestTimeout, true, "<p>Server timeout waiting for the HTTP request from the client.</p>\n")
	add(StatusLengthRequired, true, "<p>A request of the requested method %[1]s requires a valid Content-length.</p>\n")
	add(StatusPreconditionFailed, false, "<p>The precondition on the request for the URL %[2]s evaluated to false.</p>\n")
	add(StatusContentTooLarge, true, "<p>The requested URL %[2]s\ndoes not allow request data with %[1]s"+
		" requests, or the amount of data provided in\nthe request exceeds the capacity limit.</p>\n")
	add(StatusUnsupportedMediaType, true, "<p>The supplied request data is not in a format\n"+
		"acceptable for processing by this resource.</p>\n")
	add(StatusInternalServerError, false, "<p>The server encountered an internal error and\nwas unable to complete your request.</p>\n")
	return pages
}()

// serverErrorPage
type serverErrorPage struct {
	title   string // "404 Not Found"
	message string // html paragraphs
	close   bool   // close the connection after this page?
}

func htmlEscape(s string) string { return htmlEscaper.Replace(s) }

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
