package vfs

import (
	"bytes"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dvsync/davsync/internal/pacer"
	"github.com/pkg/errors"
)

const (
	minSleep      = 10 * time.Millisecond
	maxSleep      = 2 * time.Second
	decayConstant = 2

	// DefaultLockTimeout is the DAV lock wait used around read/write/
	// make-dir when locking is enabled.
	DefaultLockTimeout = 600 * time.Second
	// MkdirParentLockTimeout is the shorter lock wait used while
	// creating an intermediate parent directory.
	MkdirParentLockTimeout = 10 * time.Second
	// FingerprintCheckTimeout bounds how long the TLS handshake may
	// take while verifying the pinned certificate fingerprint.
	FingerprintCheckTimeout = time.Second
)

// multistatus mirrors a WebDAV PROPFIND 207 response closely enough to
// answer list/stat: one element per returned resource.
type multistatus struct {
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href  string   `xml:"href"`
	Props davProps `xml:"propstat>prop"`
	Status string  `xml:"propstat>status"`
}

type davProps struct {
	ResourceType struct {
		Collection *struct{} `xml:"collection"`
	} `xml:"resourcetype"`
	Size     int64  `xml:"getcontentlength"`
	Modified string `xml:"getlastmodified"`
}

func (r davResponse) isDir() bool { return r.Props.ResourceType.Collection != nil }

func (r davResponse) statusOK() bool {
	if r.Status == "" {
		return true
	}
	fields := strings.Fields(r.Status)
	for _, f := range fields {
		if code, err := strconv.Atoi(f); err == nil {
			return code >= 200 && code < 300
		}
	}
	return true
}

var timeFormats = []string{time.RFC1123, time.RFC1123Z, time.RFC3339}

func parseDAVTime(s string) time.Time {
	for _, layout := range timeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// davError carries the HTTP status of a failed call so callers can
// special-case 404/405 the way the reconciler's idempotence rules
// require.
type davError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *davError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("webdav: %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("webdav: %s", e.Status)
}

// LockConfig controls the optional short-lived DAV lock taken around a
// read, write or make-dir call.
type LockConfig struct {
	Enabled bool
	Timeout time.Duration
}

// WebDAV wraps a DAV client rooted at a URL. stat is a depth-0 PROPFIND,
// list a depth-1 PROPFIND with the directory itself filtered out.
type WebDAV struct {
	endpoint   *url.URL
	root       string
	user, pass string
	client     *http.Client
	pacer      *pacer.Pacer
	lock       LockConfig
	pinnedSHA  []byte // SHA-256 fingerprint to pin, nil to skip pinning
}

// WebDAVConfig is the set of connection parameters NewWebDAV needs.
type WebDAVConfig struct {
	Endpoint     string
	Root         string
	User, Pass   string
	PinnedSHA256 string // hex-encoded, empty to skip pinning
	Locks        LockConfig
	ConnectTimeout time.Duration
}

// NewWebDAV constructs a WebDAV capability from cfg.
func NewWebDAV(cfg WebDAVConfig) (*WebDAV, error) {
	endpoint := cfg.Endpoint
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "parse webdav endpoint")
	}
	w := &WebDAV{
		endpoint: u,
		root:     strings.Trim(cfg.Root, "/"),
		user:     cfg.User,
		pass:     cfg.Pass,
		pacer:    pacer.New(pacer.MinSleep(minSleep), pacer.MaxSleep(maxSleep), pacer.DecayConstant(decayConstant)),
		lock:     cfg.Locks,
	}
	if cfg.PinnedSHA256 != "" {
		sha, err := hex.DecodeString(strings.ReplaceAll(cfg.PinnedSHA256, ":", ""))
		if err != nil {
			return nil, errors.Wrap(err, "parse pinned certificate fingerprint")
		}
		w.pinnedSHA = sha
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = 10 * time.Second
	}
	transport := &http.Transport{
		DialTLS: w.dialTLSPinned(connectTimeout),
	}
	w.client = &http.Client{Transport: transport}
	return w, nil
}

// dialTLSPinned returns a DialTLS func that verifies the leaf
// certificate's SHA-256 fingerprint against the pinned value, when one
// is configured; otherwise it performs a normal TLS dial.
func (w *WebDAV) dialTLSPinned(connectTimeout time.Duration) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		timeout := connectTimeout
		if len(w.pinnedSHA) > 0 && FingerprintCheckTimeout < timeout {
			timeout = FingerprintCheckTimeout
		}
		dialer := &net.Dialer{Timeout: timeout}
		conn, err := tls.DialWithDialer(dialer, network, addr, &tls.Config{})
		if err != nil {
			return nil, err
		}
		if len(w.pinnedSHA) == 0 {
			return conn, nil
		}
		state := conn.ConnectionState()
		if len(state.PeerCertificates) == 0 {
			conn.Close()
			return nil, errors.New("webdav: no peer certificate to verify")
		}
		got := fingerprintFromCert(state.PeerCertificates[0].Raw)
		want := hex.EncodeToString(w.pinnedSHA)
		if got != want {
			conn.Close()
			return nil, errors.Errorf("webdav: certificate fingerprint mismatch: got %s, want %s", got, want)
		}
		return conn, nil
	}
}

func (w *WebDAV) String() string { return fmt.Sprintf("webdav root '%s'", w.root) }

func (w *WebDAV) IsReadOnly() bool { return false }

func (w *WebDAV) Clone() Capability {
	return &WebDAV{
		endpoint: w.endpoint,
		root:     w.root,
		user:     w.user,
		pass:     w.pass,
		client:   w.client,
		pacer:    pacer.New(pacer.MinSleep(minSleep), pacer.MaxSleep(maxSleep), pacer.DecayConstant(decayConstant)),
		lock:     w.lock,
		pinnedSHA: w.pinnedSHA,
	}
}

func (w *WebDAV) Join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func (w *WebDAV) filePath(p string) string {
	return path.Join(w.root, p)
}

func (w *WebDAV) dirPath(p string) string {
	d := w.filePath(p)
	if d != "" && !strings.HasSuffix(d, "/") {
		d += "/"
	}
	return d
}

func (w *WebDAV) absoluteURL(p string) (string, error) {
	u, err := w.endpoint.Parse(p)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return false
	}
	switch resp.StatusCode {
	case 429, 500, 502, 503, 504, 509:
		return true
	}
	return false
}

// do issues an HTTP request against p, paced and retried on transient
// failure, optionally wrapped in a DAV lock held for lockTimeout (zero
// means the configured default).
func (w *WebDAV) do(method, p string, body io.Reader, extraHeaders map[string]string, needsLock bool, lockTimeout time.Duration) (*http.Response, error) {
	if needsLock && w.lock.Enabled {
		token, err := w.acquireLock(p, lockTimeout)
		if err != nil {
			return nil, errors.Wrap(err, "acquire dav lock")
		}
		defer w.releaseLock(p, token)
		if token != "" {
			if extraHeaders == nil {
				extraHeaders = map[string]string{}
			}
			extraHeaders["If"] = fmt.Sprintf("(<%s>)", token)
		}
	}

	var resp *http.Response
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = io.ReadAll(body)
		if err != nil {
			return nil, err
		}
	}
	err := w.pacer.Call(func() (bool, error) {
		u, err := w.absoluteURL(p)
		if err != nil {
			return false, err
		}
		var reqBody io.Reader
		if bodyBytes != nil {
			reqBody = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequest(method, u, reqBody)
		if err != nil {
			return false, err
		}
		if w.user != "" {
			req.SetBasicAuth(w.user, w.pass)
		}
		for k, v := range extraHeaders {
			req.Header.Set(k, v)
		}
		resp, err = w.client.Do(req)
		retry := shouldRetry(resp, err)
		if err == nil && resp.StatusCode >= 400 {
			return retry, readDavError(resp)
		}
		return retry, err
	})
	return resp, err
}

func readDavError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return &davError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(data))}
}

const lockRequestBody = `<?xml version="1.0" encoding="utf-8"?>` +
	`<D:lockinfo xmlns:D="DAV:"><D:lockscope><D:exclusive/></D:lockscope>` +
	`<D:locktype><D:write/></D:locktype></D:lockinfo>`

// acquireLock takes a short-lived DAV LOCK on p, returning its opaque
// lock token. A server that answers LOCK with 405 or 406 is treated
// as lock-free: the caller proceeds unguarded rather than failing the
// whole operation, since locking is an optional safety net here.
func (w *WebDAV) acquireLock(p string, timeout time.Duration) (string, error) {
	if timeout == 0 {
		timeout = w.lock.Timeout
	}
	if timeout == 0 {
		timeout = DefaultLockTimeout
	}
	resp, err := w.do("LOCK", p, strings.NewReader(lockRequestBody), map[string]string{
		"Content-Type": `text/xml; charset="utf-8"`,
		"Timeout":      fmt.Sprintf("Second-%d", int(timeout.Seconds())),
		"Depth":        "0",
	}, false, 0)
	if err != nil {
		if isMethodNotAllowed(err) {
			return "", nil
		}
		return "", err
	}
	defer resp.Body.Close()
	token := resp.Header.Get("Lock-Token")
	if token == "" {
		token = "opaquelocktoken:" + jitterHex()
	}
	return strings.Trim(token, "<>"), nil
}

func (w *WebDAV) releaseLock(p, token string) {
	if token == "" {
		return
	}
	// best-effort UNLOCK; failures here don't abort the caller's
	// operation, they just leave the lock to expire on its own.
	resp, err := w.do("UNLOCK", p, nil, map[string]string{"Lock-Token": "<" + token + ">"}, false, 0)
	if err == nil {
		resp.Body.Close()
	}
}

func jitterHex() string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%d", time.Now().UnixNano())))
	return hex.EncodeToString(h[:8])
}

func (w *WebDAV) List(dir string) ([]Entry, error) {
	resp, err := w.do("PROPFIND", w.dirPath(dir), nil, map[string]string{"Depth": "1"}, false, 0)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	var ms multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return nil, errors.Wrap(err, "decode propfind response")
	}
	base, err := w.absoluteURL(w.dirPath(dir))
	if err != nil {
		return nil, err
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, r := range ms.Responses {
		if !r.statusOK() {
			continue
		}
		hrefURL, err := url.Parse(r.Href)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(hrefURL.Path, baseURL.Path) {
			continue
		}
		rel := strings.TrimSuffix(hrefURL.Path[len(baseURL.Path):], "/")
		if rel == "" {
			continue // the directory listing itself
		}
		entries = append(entries, Entry{
			ParentPath:   dir,
			Name:         rel,
			IsDir:        r.isDir(),
			Size:         r.Props.Size,
			LastModified: parseDAVTime(r.Props.Modified),
		})
	}
	return entries, nil
}

func isNotFound(err error) bool {
	de, ok := err.(*davError)
	return ok && de.StatusCode == http.StatusNotFound
}

func isMethodNotAllowed(err error) bool {
	de, ok := err.(*davError)
	return ok && (de.StatusCode == http.StatusMethodNotAllowed || de.StatusCode == http.StatusNotAcceptable)
}

func (w *WebDAV) Stat(p string) (Entry, error) {
	resp, err := w.do("PROPFIND", w.filePath(p), nil, map[string]string{"Depth": "0"}, false, 0)
	if err != nil {
		if isNotFound(err) {
			return Entry{}, ErrNotExist
		}
		return Entry{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Entry{}, ErrNotExist
	}
	var ms multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return Entry{}, errors.Wrap(err, "decode propfind response")
	}
	if len(ms.Responses) == 0 || !ms.Responses[0].statusOK() {
		return Entry{}, ErrNotExist
	}
	r := ms.Responses[0]
	return Entry{
		Name:         path.Base(p),
		IsDir:        r.isDir(),
		Size:         r.Props.Size,
		LastModified: parseDAVTime(r.Props.Modified),
	}, nil
}

func (w *WebDAV) Read(p string) ([]byte, error) {
	rc, err := w.OpenRead(p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (w *WebDAV) OpenRead(p string) (io.ReadCloser, error) {
	resp, err := w.do(http.MethodGet, w.filePath(p), nil, nil, true, 0)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return resp.Body, nil
}

func (w *WebDAV) Write(p string, data []byte, modTime time.Time) error {
	if err := w.mkParentDir(w.filePath(p)); err != nil {
		return errors.Wrap(err, "make parent dir before write")
	}
	resp, err := w.do(http.MethodPut, w.filePath(p), bytes.NewReader(data), nil, true, 0)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (w *WebDAV) mkParentDir(filePath string) error {
	parent := path.Dir(strings.TrimSuffix(filePath, "/"))
	if parent == "." {
		parent = ""
	}
	return w.mkdirPath(parent, MkdirParentLockTimeout)
}

// statRawIsDir PROPFINDs a path that has already been joined against
// w.root (as mkdirPath's dirPath is), without rejoining it again,
// reporting whether it exists and, if so, whether it is a directory.
func (w *WebDAV) statRawIsDir(rawPath string) (isDir, exists bool) {
	resp, err := w.do("PROPFIND", rawPath, nil, map[string]string{"Depth": "0"}, false, 0)
	if err != nil {
		return false, false
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, false
	}
	var ms multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return false, false
	}
	if len(ms.Responses) == 0 || !ms.Responses[0].statusOK() {
		return false, false
	}
	return ms.Responses[0].isDir(), true
}

func (w *WebDAV) mkdirPath(dirPath string, lockTimeout time.Duration) error {
	if dirPath == "" {
		return nil
	}
	if !strings.HasSuffix(dirPath, "/") {
		dirPath += "/"
	}
	resp, err := w.do("MKCOL", dirPath, nil, nil, true, lockTimeout)
	if err != nil {
		if isMethodNotAllowed(err) {
			// A 405 only means success if the path is genuinely already
			// a directory; a file occupying the same name also answers
			// MKCOL with 405, and that must surface as a conflict.
			if isDir, exists := w.statRawIsDir(dirPath); exists && isDir {
				return nil
			}
			return err
		}
		if de, ok := err.(*davError); ok && de.StatusCode == http.StatusConflict {
			parent := path.Dir(strings.TrimSuffix(dirPath, "/"))
			if parent == "." {
				parent = ""
			}
			if perr := w.mkdirPath(parent, lockTimeout); perr != nil {
				return perr
			}
			_, err = w.do("MKCOL", dirPath, nil, nil, true, lockTimeout)
			if err != nil {
				if isMethodNotAllowed(err) {
					if isDir, exists := w.statRawIsDir(dirPath); exists && isDir {
						return nil
					}
				}
				return err
			}
			return nil
		}
		return err
	}
	resp.Body.Close()
	return nil
}

func (w *WebDAV) DeleteFile(p string) error {
	resp, err := w.do(http.MethodDelete, w.filePath(p), nil, nil, false, 0)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	resp.Body.Close()
	return nil
}

func (w *WebDAV) MakeDir(p string) error {
	return w.mkdirPath(w.dirPath(p), DefaultLockTimeout)
}

func (w *WebDAV) DeleteDir(p string) error {
	resp, err := w.do(http.MethodDelete, w.dirPath(p), nil, nil, false, 0)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	resp.Body.Close()
	return nil
}

func (w *WebDAV) Exists(p string) bool {
	_, err := w.Stat(p)
	return err == nil
}

func (w *WebDAV) IsFile(p string) bool {
	e, err := w.Stat(p)
	return err == nil && !e.IsDir
}

var _ Capability = (*WebDAV)(nil)
var _ Reader = (*WebDAV)(nil)

// fingerprintFromCert computes the hex SHA-256 fingerprint of a DER
// certificate, the format the pinned config value is compared against.
func fingerprintFromCert(der []byte) string {
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}
