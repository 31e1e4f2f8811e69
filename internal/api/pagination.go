package api

import (
	"net/http"
	"net/url"
	"strconv"
)

// page - параметры limit/offset. Без limit список отдается целиком.
type page struct {
	limit  int
	offset int
}

type paginatedResponse struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

func parsePage(r *http.Request) (page, bool) {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		return page{}, false
	}
	offset, err := strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return page{limit: limit, offset: offset}, true
}

func (p page) response(r *http.Request, count int, results any) paginatedResponse {
	resp := paginatedResponse{Count: count, Results: results}
	if p.limit < count-p.offset {
		next := pageURL(r, p.limit, p.offset+p.limit)
		resp.Next = &next
	}
	if p.offset > 0 {
		prev := pageURL(r, p.limit, p.offset-p.limit)
		resp.Previous = &prev
	}
	return resp
}

// pageURL строит абсолютную ссылку на страницу. offset <= 0 убирается из запроса.
func pageURL(r *http.Request, limit, offset int) string {
	u := url.URL{Scheme: "http", Host: r.Host, Path: r.URL.Path}
	if r.TLS != nil {
		u.Scheme = "https"
	}
	q := r.URL.Query()
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
