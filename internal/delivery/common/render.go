package common

import (
	"net/http"

	"github.com/unrolled/render"
)

var jRender = render.New(render.Options{
	Charset:       "UTF-8",
	IndentJSON:    true,
	PrefixJSON:    []byte(""),
	StreamingJSON: true,
})

type QueryResult struct {
	Total int64       `json:"total"`
	Data  interface{} `json:"data"`
}

// ErrorResult is the body of every failed request.
type ErrorResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func Render() *render.Render {
	return jRender
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	_ = jRender.JSON(w, status, v)
}

func Fail(w http.ResponseWriter, status int, message string, err error) {
	res := ErrorResult{Message: message}
	if err != nil {
		res.Error = err.Error()
	}
	_ = jRender.JSON(w, status, res)
}
