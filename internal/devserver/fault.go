package devserver

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
)

// FaultMode режим имитации сбоев сервера.
type FaultMode int32

const (
	// FaultNone сервер отвечает штатно.
	FaultNone FaultMode = iota
	// FaultUnavailable все запросы получают 503.
	FaultUnavailable
	// FaultDrop соединение закрывается без ответа, клиент видит сетевую ошибку.
	FaultDrop
)

func (m FaultMode) String() string {
	switch m {
	case FaultNone:
		return "none"
	case FaultUnavailable:
		return "unavailable"
	case FaultDrop:
		return "drop"
	default:
		return fmt.Sprintf("FaultMode(%d)", int32(m))
	}
}

// ParseFaultMode разбирает имя режима.
func ParseFaultMode(s string) (FaultMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return FaultNone, nil
	case "unavailable":
		return FaultUnavailable, nil
	case "drop":
		return FaultDrop, nil
	}
	return FaultNone, fmt.Errorf("unknown fault mode %q", s)
}

// Faults переключатель сбоев. Переключается без перезапуска сервера.
type Faults struct {
	mode atomic.Int32
}

// Set выставляет режим.
func (f *Faults) Set(m FaultMode) {
	f.mode.Store(int32(m))
}

// Mode возвращает текущий режим.
func (f *Faults) Mode() FaultMode {
	return FaultMode(f.mode.Load())
}

// Middleware применяет текущий режим к запросу. Ставится первым в цепочке.
// Запросы под exemptPrefix обслуживаются всегда, чтобы режим можно было выключить.
func (f *Faults) Middleware(exemptPrefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return f.handler(exemptPrefix, next)
	}
}

func (f *Faults) handler(exemptPrefix string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if exemptPrefix != "" && strings.HasPrefix(r.URL.Path, exemptPrefix) {
			next.ServeHTTP(w, r)
			return
		}
		switch f.Mode() {
		case FaultUnavailable:
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
			return
		case FaultDrop:
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					_ = conn.Close()
					return
				}
			}
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}
