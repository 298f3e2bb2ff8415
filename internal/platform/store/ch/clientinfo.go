package ch

import (
	"cmp"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// BuildClientInfo tags the connection so system.query_log shows which binary
// (role "shoot" or "audit") and which build wrote a row
func BuildClientInfo(role, tag string) clickhouse.ClientInfo {
	host, _ := os.Hostname()
	info := clickhouse.ClientInfo{}
	for _, p := range [][2]string{
		{"umbra", tag},
		{"role", role},
		{"go", runtime.Version()},
		{"commit", revision()},
		{"host", host},
	} {
		info.Products = append(info.Products, struct{ Name, Version string }{p[0], orDash(p[1])})
	}
	return info
}

func revision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}

func orDash(s string) string { return cmp.Or(strings.TrimSpace(s), "-") }
