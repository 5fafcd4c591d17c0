package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"food-gateway/internal/adapters/messaging/mock"
	"food-gateway/internal/adapters/upstream"
	"food-gateway/internal/app"
	"food-gateway/internal/config"
	"food-gateway/internal/core/domain"
	"food-gateway/internal/core/ports"
	"food-gateway/internal/core/validation"
	"food-gateway/internal/observability"
)

func main() {
	var configPath string
	logger := observability.SetupLogger(os.Getenv("APP_ENV"))

	var rootCmd = &cobra.Command{
		Use:          "food-cli",
		Short:        "Выполнить команды питания напрямую через API процессинга",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Путь к файлу конфигурации")

	// newService builds the same orchestrator the gateway runs, without the HTTP edge.
	newService := func() (ports.FoodService, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		client := upstream.NewClient(upstream.Options{
			URL:      cfg.Upstream.URL,
			User:     cfg.Upstream.User,
			Password: cfg.Upstream.Password,
			Timeout:  cfg.Upstream.Timeout,
		}, logger)
		return app.NewFoodService(client, mock.NewBroker(logger), logger), nil
	}

	var (
		account     string
		accountType string
		agent       string
		serviceType string
		schoolID    string
	)

	var getMenuCmd = &cobra.Command{
		Use:   "get-menu",
		Short: "Показать меню поставщика",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			req := domain.GetMenuRequest{
				Account:     account,
				AccountType: domain.AccountProvider,
				Agent:       agent,
				ServiceType: domain.ServiceType(serviceType),
			}
			if err := validation.ValidateGetMenu(req); err != nil {
				return describe(err)
			}
			resp, err := svc.GetMenu(cmd.Context(), req)
			if err != nil {
				return describe(err)
			}
			return renderMenu(cmd.OutOrStdout(), resp)
		},
	}
	getMenuCmd.Flags().StringVar(&account, "account", "", "Идентификатор поставщика")
	getMenuCmd.Flags().StringVar(&agent, "agent", "food-cli", "Агент")
	getMenuCmd.Flags().StringVar(&serviceType, "service-type", string(domain.ServiceBuffet), "buffet или diningroom")

	var checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Проверить баланс лицевого счёта",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			req := domain.CheckRequest{
				Account:     account,
				AccountType: domain.AccountType(accountType),
				Agent:       agent,
				ServiceType: domain.ServiceType(serviceType),
			}
			if err := validation.ValidateCheck(req); err != nil {
				return describe(err)
			}
			resp, err := svc.Check(cmd.Context(), req)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	checkCmd.Flags().StringVar(&account, "account", "", "Лицевой счёт")
	checkCmd.Flags().StringVar(&accountType, "account-type", string(domain.AccountLS), "ls, card или mifare")
	checkCmd.Flags().StringVar(&agent, "agent", "food-cli", "Агент")
	checkCmd.Flags().StringVar(&serviceType, "service-type", string(domain.ServiceBuffet), "buffet или diningroom")

	var getAccountsCmd = &cobra.Command{
		Use:   "get-accounts",
		Short: "Список лицевых счетов школы",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			req := domain.GetAccountsRequest{
				Account:     account,
				AccountType: domain.AccountProvider,
				Agent:       agent,
				SchoolID:    schoolID,
			}
			if err := validation.ValidateGetAccounts(req); err != nil {
				return describe(err)
			}
			resp, err := svc.GetAccounts(cmd.Context(), req)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	getAccountsCmd.Flags().StringVar(&account, "account", "", "Идентификатор поставщика")
	getAccountsCmd.Flags().StringVar(&agent, "agent", "food-cli", "Агент")
	getAccountsCmd.Flags().StringVar(&schoolID, "school-id", "", "Идентификатор школы")

	var sendCheckCmd = &cobra.Command{
		Use:   "send-check",
		Short: "Отправить чек из JSON-файла",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("file")
			req, err := readSendCheck(path)
			if err != nil {
				return err
			}
			if err := validation.ValidateSendCheck(req); err != nil {
				return describe(err)
			}
			svc, err := newService()
			if err != nil {
				return err
			}
			resp, err := svc.SendCheck(cmd.Context(), req)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	sendCheckCmd.Flags().String("file", "", "JSON-файл с чеком")
	_ = sendCheckCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(getMenuCmd, checkCmd, getAccountsCmd, sendCheckCmd, newEventsCmd(logger))
	if err := rootCmd.Execute(); err != nil {
		logger.Error("ошибка выполнения команды", "ERROR", err)
		os.Exit(1)
	}
}

// Helper functions

// describe flattens a command error with its details for the terminal.
func describe(err error) error {
	ce, ok := domain.AsCommandError(err)
	if !ok || len(ce.Details) == 0 {
		return err
	}
	msg := ce.Message
	for _, d := range ce.Details {
		msg += "\n  - " + d
	}
	return errors.New(msg)
}

func readSendCheck(path string) (domain.SendCheckRequest, error) {
	var req domain.SendCheckRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("не удалось прочитать файл чека: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("некорректный JSON чека: %w", err)
	}
	req.Command = domain.CommandSendCheck
	return req, nil
}

func printJSON(w io.Writer, resp domain.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// renderMenu prints buffet products or dining room positions as a table.
func renderMenu(out io.Writer, resp domain.Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	var menu domain.Menu
	if err := json.Unmarshal(raw, &menu); err != nil {
		return fmt.Errorf("неожиданный формат меню: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if len(menu.Menu) > 0 {
		fmt.Fprintln(w, "MENU_ID\tNAME\tPRICE\tSUBSIDY\tSCHOOL")
		for _, m := range menu.Menu {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%s\n", m.MenuID, m.Name, m.Price, m.Subsidy, m.SchoolName)
		}
	} else {
		fmt.Fprintln(w, "PRODUCT_ID\tNAME\tPRICE\tUNIT\tBARCODE")
		for _, p := range menu.Products {
			barcode := "N/A"
			if p.ProductBarcode != nil {
				barcode = *p.ProductBarcode
			}
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n", p.ProductID, p.Name, p.Price, p.UnitName, barcode)
		}
	}
	return w.Flush()
}
