package rates

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	// maxSourceBytes caps a remote rate table.
	maxSourceBytes = 16 << 20
	sourceTimeout  = 30 * time.Second
)

// sourceClients are shared by every retailer. Some rate hosts omit
// intermediate certificates, so descriptors can opt out of verification.
var sourceClients = sync.OnceValues(func() (verified, unverified *http.Client) {
	build := func(skipVerify bool) *http.Client {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if skipVerify {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		return &http.Client{Timeout: sourceTimeout, Transport: tr}
	}
	return build(false), build(true)
})

func clientFor(d RetailerDescriptor, override *http.Client) *http.Client {
	if override != nil {
		return override
	}
	verified, unverified := sourceClients()
	if d.SkipTLSVerify {
		return unverified
	}
	return verified
}

func isRemote(src string) bool {
	s := strings.ToLower(strings.TrimSpace(src))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// FetchTable reads and decodes the rate table for d. Local files are CSV
// unless they end in .json; remote sources may be CSV or a JSON array.
func FetchTable(ctx context.Context, client *http.Client, d RetailerDescriptor) (Table, error) {
	if !isRemote(d.Source) {
		data, err := os.ReadFile(d.Source)
		if err != nil {
			return Table{}, fmt.Errorf("read %s source: %w", d.Key, err)
		}
		ct := ""
		if strings.HasSuffix(strings.ToLower(d.Source), ".json") {
			ct = "application/json"
		}
		return DecodeTable(data, ct)
	}

	client = clientFor(d, client)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.Source, nil)
	if err != nil {
		return Table{}, fmt.Errorf("build %s request: %w", d.Key, err)
	}
	req.Header.Set("Accept", "application/json, text/csv;q=0.9, */*;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return Table{}, fmt.Errorf("fetch %s source: %w", d.Key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Table{}, fmt.Errorf("fetch %s source: status %d", d.Key, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return Table{}, fmt.Errorf("read %s body: %w", d.Key, err)
	}
	return DecodeTable(data, resp.Header.Get("Content-Type"))
}
