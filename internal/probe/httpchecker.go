package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hamed0406/uptimeengine/internal/domain"
)

// maxBodyBytes bounds how much of a response is scanned for keywords.
const maxBodyBytes = 1 << 20

type HTTPChecker struct {
	Client *http.Client
	// ClassifyDNS annotates lookup failures. Defaults to CheckDNS.
	ClassifyDNS func(ctx context.Context, host string) DNSStatus
}

func NewHTTPChecker() *HTTPChecker {
	return &HTTPChecker{
		Client:      &http.Client{},
		ClassifyDNS: CheckDNS,
	}
}

func (h *HTTPChecker) Check(ctx context.Context, spec domain.MonitorSpec) domain.CheckResult {
	start := time.Now()
	res := newResult(spec, start)
	ctx, cancel, timeout := withTimeout(ctx, spec)
	defer cancel()

	method := strings.ToUpper(string(spec.Method))
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if spec.Body != "" {
		body = strings.NewReader(spec.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, spec.Target, body)
	if err != nil {
		return fail(res, domain.KindConnection, "connection error: "+err.Error())
	}
	for k, v := range spec.Headers {
		if strings.EqualFold(k, "Host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		res.Latency = time.Since(start)
		if isTimeout(err) {
			return fail(res, domain.KindTimeout, timeoutReason(timeout))
		}
		return fail(res, domain.KindConnection, h.connectionReason(ctx, spec.Target, err))
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	payload, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	res.Latency = time.Since(start)

	if !spec.ExpectsCode(resp.StatusCode) {
		return fail(res, domain.KindPredicate, fmt.Sprintf("unexpected status code %d", resp.StatusCode))
	}
	if spec.ResponseKeyword == "" && spec.ResponseForbiddenKeyword == "" {
		res.Up = true
		return res
	}
	if readErr != nil {
		if isTimeout(readErr) {
			return fail(res, domain.KindTimeout, timeoutReason(timeout))
		}
		return fail(res, domain.KindConnection, "connection error: reading body: "+readErr.Error())
	}
	if kw := spec.ResponseKeyword; kw != "" && !bytes.Contains(payload, []byte(kw)) {
		return fail(res, domain.KindPredicate, fmt.Sprintf("response does not contain keyword %q", kw))
	}
	if kw := spec.ResponseForbiddenKeyword; kw != "" && bytes.Contains(payload, []byte(kw)) {
		return fail(res, domain.KindPredicate, fmt.Sprintf("response contains forbidden keyword %q", kw))
	}
	res.Up = true
	return res
}

// connectionReason adds the DNS class of the host when the failure was a lookup.
func (h *HTTPChecker) connectionReason(ctx context.Context, target string, err error) string {
	reason := "connection error: " + unwrapURLError(err).Error()
	var de *net.DNSError
	if !errors.As(err, &de) || h.ClassifyDNS == nil || ctx.Err() != nil {
		return reason
	}
	st := h.ClassifyDNS(ctx, extractHost(target))
	return fmt.Sprintf("%s (dns=%s)", reason, st.Class)
}

func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}
