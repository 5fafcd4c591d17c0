package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"

	"food-gateway/internal/config"
	"food-gateway/internal/observability"
)

// errSkipped marks a dependency that is not configured.
var errSkipped = errors.New("не настроено")

// Check describes one diagnostic check
type Check struct {
	Name     string
	Func     func(ctx context.Context) error
	Error    error
	Duration time.Duration
}

var (
	okColor      = color.New(color.FgGreen, color.Bold)
	failColor    = color.New(color.FgRed, color.Bold)
	skipColor    = color.New(color.FgYellow)
	headingColor = color.New(color.FgCyan, color.Bold)
)

func main() {
	logger := observability.SetupLogger("development")
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("не удалось загрузить конфигурацию", "ERROR", err)
		os.Exit(1)
	}

	// Формируем список проверок, используя данные из config.yaml
	checks := []Check{
		{Name: "Food Gateway", Func: func(ctx context.Context) error {
			return checkHTTPHealth(ctx, "localhost"+cfg.Addr()+"/health", logger)
		}},
		{Name: "Processor API", Func: func(ctx context.Context) error {
			return checkReachable(ctx, cfg.Upstream.URL, logger)
		}},
		{Name: "Redis", Func: func(ctx context.Context) error {
			if cfg.Redis.Addr == "" {
				return errSkipped
			}
			return checkRedis(ctx, cfg.Redis.Addr, logger)
		}},
		{Name: "Kafka Cluster", Func: func(ctx context.Context) error {
			if cfg.Kafka.BootstrapServers == "" {
				return errSkipped
			}
			return checkKafka(ctx, strings.Split(cfg.Kafka.BootstrapServers, ","))
		}},
		{Name: "OTLP Collector", Func: func(ctx context.Context) error {
			if cfg.OTLP.Endpoint == "" {
				return errSkipped
			}
			return checkTCP(ctx, cfg.OTLP.Endpoint)
		}},
	}

	var wg sync.WaitGroup
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	headingColor.Println("🩺 Запуск комплексной диагностики системы...")

	for i := range checks {
		wg.Add(1)
		go func(c *Check) {
			defer wg.Done()
			start := time.Now()
			c.Error = c.Func(ctx)
			c.Duration = time.Since(start)
		}(&checks[i])
	}

	wg.Wait()

	headingColor.Println("\n--- Отчёт по диагностике ---")
	hasErrors := false
	for _, c := range checks {
		switch {
		case c.Error == nil:
			fmt.Printf("[%s] %-20s (время %v)\n", okColor.Sprint("OK"), c.Name, c.Duration.Round(time.Millisecond))
		case errors.Is(c.Error, errSkipped):
			fmt.Printf("[%s] %-20s %s\n", skipColor.Sprint("SKIPPED"), c.Name, c.Error)
		default:
			hasErrors = true
			fmt.Printf("[%s] %-20s (время %v) - Ошибка: %v\n", failColor.Sprint("FAILED"), c.Name, c.Duration.Round(time.Millisecond), c.Error)
		}
	}

	if hasErrors {
		failColor.Println("\nДиагностика выявила проблемы.")
		os.Exit(1)
	}
	okColor.Println("\nВсе системы в норме!")
}

// --- Functions for checks ---

func checkHTTPHealth(ctx context.Context, url string, logger *slog.Logger) error {
	// Добавляем http://, если его нет
	if !strings.HasPrefix(url, "http") {
		url = "http://" + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("не удалось закрыть Http соединение", "ERROR", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("некорректный статус: %s", resp.Status)
	}
	return nil
}

// checkReachable only needs an HTTP answer: the processor accepts POST, so any status will do.
func checkReachable(ctx context.Context, rawURL string, logger *slog.Logger) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	if err := resp.Body.Close(); err != nil {
		logger.Error("не удалось закрыть Http соединение", "ERROR", err)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("некорректный статус: %s", resp.Status)
	}
	return nil
}

func checkRedis(ctx context.Context, addr string, logger *slog.Logger) error {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("не удалось закрыть Redis", "ERROR", err)
		}
	}()
	return rdb.Ping(ctx).Err()
}

func checkKafka(ctx context.Context, brokers []string) error {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DialTimeout(5*time.Second),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	// Ping проверяет, что мы можем подключиться к брокерам
	return client.Ping(ctx)
}

func checkTCP(ctx context.Context, endpoint string) error {
	host := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		host = u.Host
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return err
	}
	return conn.Close()
}
