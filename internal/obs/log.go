// Package obs собирает наблюдаемость сервиса тикера: Prometheus-метрики,
// структурированный JSON-лог и build info.
package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger возвращает общий логгер сервиса. Без префикса и флагов: каждая
// строка уже самодостаточный JSON.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest печатает одну JSON-строку; несериализуемая запись заменяется
// фиксированной, чтобы поток логов оставался валидным JSON.
func LogRequest(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"ticker log entry dropped","reason":"marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}
