package siop

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fiware/VCHolder/logging"
)

// FormPoster sends a form encoded POST and reports status and Location header of the answer. Redirects are not
// followed.
type FormPoster interface {
	PostForm(ctx context.Context, targetUrl string, form url.Values) (status int, location string, err error)
}

type HttpFormPoster struct {
	client *http.Client
}

func NewHttpFormPoster(timeout time.Duration) HttpFormPoster {
	return HttpFormPoster{client: &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (hfp HttpFormPoster) PostForm(ctx context.Context, targetUrl string, form url.Values) (status int, location string, err error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, targetUrl, strings.NewReader(form.Encode()))
	if err != nil {
		return status, location, err
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := hfp.client.Do(request)
	if err != nil {
		return status, location, err
	}
	defer response.Body.Close()
	if _, err := io.Copy(io.Discard, response.Body); err != nil {
		logging.Log().Debugf("Was not able to read the response body of %s. Err: %v", targetUrl, err)
	}
	return response.StatusCode, response.Header.Get("Location"), nil
}
