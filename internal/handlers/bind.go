package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/otcheredev/hospital-records/internal/services"
)

const maxFormMemory = 1 << 20

var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.ZeroEmpty(true)
	return d
}

// bind decodes a JSON body or a url-encoded/multipart form into dst
func bind(r *http.Request, dst interface{}) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxFormMemory))
		if err := dec.Decode(dst); err != nil {
			return &services.ValidationError{Fields: map[string]string{services.NonFieldErrors: "Invalid request body."}}
		}
		return nil
	}

	var err error
	if ct == "multipart/form-data" {
		err = r.ParseMultipartForm(maxFormMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return &services.ValidationError{Fields: map[string]string{services.NonFieldErrors: "Invalid form data."}}
	}
	return decodeValues(r.PostForm, dst)
}

// bindQuery decodes query-string parameters into dst
func bindQuery(r *http.Request, dst interface{}) error {
	return decodeValues(r.URL.Query(), dst)
}

func decodeValues(values map[string][]string, dst interface{}) error {
	if err := formDecoder.Decode(dst, values); err != nil {
		fields := map[string]string{}
		if multi, ok := err.(schema.MultiError); ok {
			for field := range multi {
				fields[field] = "Enter a valid value."
			}
		} else {
			fields[services.NonFieldErrors] = fmt.Sprintf("Invalid input: %v", err)
		}
		return &services.ValidationError{Fields: fields}
	}
	return nil
}
