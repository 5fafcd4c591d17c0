package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kgo"
)

// auditEvent is the subset of a published command event shown in the table.
type auditEvent struct {
	Command     string `json:"command"`
	TxnID       string `json:"txn_id"`
	Result      string `json:"result"`
	Enriched    bool   `json:"enriched"`
	ProcessedAt string `json:"processed_at"`
}

func newEventsCmd(logger *slog.Logger) *cobra.Command {
	var kafkaBrokers string
	var topic string

	var eventsCmd = &cobra.Command{
		Use:   "events",
		Short: "Просмотреть последние события аудита",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			logger.Info("просмотр последних событий", "topic", topic, "limit", limit)

			client, err := kgo.NewClient(
				kgo.SeedBrokers(strings.Split(kafkaBrokers, ",")...),
				kgo.ConsumeTopics(topic),
				kgo.FetchMaxWait(5*time.Second),
				// Начинаем читать с самого начала топика
				kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
			)
			if err != nil {
				return fmt.Errorf("не удалось создать consumer: %w", err)
			}
			defer client.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			writeEventsHeader(w)

			msgCount := 0
			for msgCount < limit {
				fetches := client.PollFetches(cmd.Context())
				if fetches.IsClientClosed() {
					break
				}
				if len(fetches.Records()) == 0 {
					logger.Info("больше нет сообщений в топике")
					break
				}

				fetches.EachRecord(func(record *kgo.Record) {
					if msgCount >= limit {
						return
					}
					writeEventRow(w, record)
					msgCount++
				})
			}
			return w.Flush()
		},
	}
	eventsCmd.Flags().StringVar(&kafkaBrokers, "brokers", "localhost:9092", "Адреса брокеров Kafka")
	eventsCmd.Flags().StringVar(&topic, "topic", "food.commands", "Топик событий аудита")
	eventsCmd.Flags().Int("limit", 10, "Количество сообщений для просмотра")
	return eventsCmd
}

func writeEventsHeader(w io.Writer) {
	fmt.Fprintln(w, "OFFSET\tACCOUNT\tCOMMAND\tTXN_ID\tRESULT\tENRICHED\tPROCESSED_AT")
	fmt.Fprintln(w, "------\t-------\t-------\t------\t------\t--------\t------------")
}

func writeEventRow(w io.Writer, record *kgo.Record) {
	var e auditEvent
	if err := json.Unmarshal(record.Value, &e); err != nil {
		fmt.Fprintf(w, "%d\t%s\t%s\t\t\t\t\n", record.Offset, string(record.Key), "<unreadable>")
		return
	}
	fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\t%s\n",
		record.Offset, string(record.Key), e.Command, orNA(e.TxnID), e.Result, e.Enriched, e.ProcessedAt)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
