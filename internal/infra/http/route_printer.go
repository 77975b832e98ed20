package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"runtime"
	"sort"
	"strings"
)

// RouteInfo describes one registered route.
type RouteInfo struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Handler string `json:"handler"`
}

// RouteStats is the collected route table.
type RouteStats struct {
	Total   int
	Methods map[string]int
	Routes  []RouteInfo
}

// RouteFilters narrows and orders the printed table.
type RouteFilters struct {
	Method string
	Path   string
	SortBy string
}

// CollectRoutes walks the router and collects the route table. Used by
// the -routes flag on the server binary.
func CollectRoutes(router Router) RouteStats {
	stats := RouteStats{
		Methods: make(map[string]int),
		Routes:  []RouteInfo{},
	}
	_ = router.Walk(func(method, path string, handler http.Handler) error {
		stats.Routes = append(stats.Routes, RouteInfo{
			Method:  method,
			Path:    path,
			Handler: handlerName(handler),
		})
		stats.Methods[method]++
		stats.Total++
		return nil
	})
	return stats
}

// handlerName resolves the handler's function name for display.
func handlerName(handler http.Handler) string {
	fn := runtime.FuncForPC(reflect.ValueOf(handler).Pointer())
	if fn == nil {
		return fmt.Sprintf("%T", handler)
	}
	name := fn.Name()
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		name = name[idx+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}

// PrintRoutes writes the route table in the given format: "table"
// (default), "json", "csv", or "simple".
func PrintRoutes(w io.Writer, stats RouteStats, format string, filters RouteFilters) {
	routes := filterRoutes(stats.Routes, filters)
	sortRoutes(routes, filters.SortBy)

	switch format {
	case "json":
		printJSON(w, routes, stats)
	case "csv":
		printCSV(w, routes)
	case "simple":
		for _, r := range routes {
			fmt.Fprintf(w, "%-8s %s\n", r.Method, r.Path)
		}
	default:
		printTable(w, routes, stats)
	}
}

func filterRoutes(routes []RouteInfo, filters RouteFilters) []RouteInfo {
	if filters.Method == "" && filters.Path == "" {
		return routes
	}
	filtered := make([]RouteInfo, 0, len(routes))
	for _, r := range routes {
		if filters.Method != "" && !strings.EqualFold(r.Method, filters.Method) {
			continue
		}
		if filters.Path != "" && !strings.Contains(r.Path, filters.Path) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func sortRoutes(routes []RouteInfo, by string) {
	sort.Slice(routes, func(i, j int) bool {
		a, b := routes[i], routes[j]
		switch by {
		case "method":
			if a.Method != b.Method {
				return a.Method < b.Method
			}
			return a.Path < b.Path
		case "handler":
			return a.Handler < b.Handler
		default:
			if a.Path != b.Path {
				return a.Path < b.Path
			}
			return a.Method < b.Method
		}
	})
}

func printTable(w io.Writer, routes []RouteInfo, stats RouteStats) {
	fmt.Fprintln(w, "API Routes")
	fmt.Fprintln(w, "==========")
	fmt.Fprintf(w, "Total: %d routes\n\n", stats.Total)

	fmt.Fprintln(w, "By Method:")
	for _, m := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		if count, ok := stats.Methods[m]; ok {
			fmt.Fprintf(w, "  %-8s %d\n", m, count)
		}
	}

	rule := strings.Repeat("-", 120)
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-8s %-50s %s\n", "METHOD", "PATH", "HANDLER")
	fmt.Fprintln(w, rule)
	for _, r := range routes {
		handler := r.Handler
		if len(handler) > 55 {
			handler = "..." + handler[len(handler)-52:]
		}
		fmt.Fprintf(w, "%-8s %-50s %s\n", r.Method, r.Path, handler)
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Showing %d routes\n", len(routes))
}

func printJSON(w io.Writer, routes []RouteInfo, stats RouteStats) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(struct {
		Total   int            `json:"total"`
		Methods map[string]int `json:"methods"`
		Routes  []RouteInfo    `json:"routes"`
	}{stats.Total, stats.Methods, routes})
}

func printCSV(w io.Writer, routes []RouteInfo) {
	fmt.Fprintln(w, "method,path,handler")
	for _, r := range routes {
		handler := strings.ReplaceAll(r.Handler, `"`, `""`)
		if strings.Contains(handler, ",") {
			handler = `"` + handler + `"`
		}
		fmt.Fprintf(w, "%s,%s,%s\n", r.Method, r.Path, handler)
	}
}
