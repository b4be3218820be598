package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/config"
	"github.com/syncwave/crm/internal/common/errorx"
	"github.com/syncwave/crm/internal/i18n"
	"github.com/syncwave/crm/internal/tenancy"
	"go.uber.org/zap"
)

var (
	masterInput tenancy.ProvisionInput

	createMasterCmd = &cobra.Command{
		Use:          "create-master-company",
		Short:        "Create the master company and its administrator",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTenancy(cmd.Context(), func(ctx context.Context, cfg *config.APIServerConfig, svc *tenancy.Service) error {
				company, admin, err := svc.ProvisionMaster(ctx, masterInput)
				if err != nil {
					return describe(cfg, err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Master company %q created (id %s, slug %s)\n", company.Name, company.ID, company.Slug)
				fmt.Fprintf(out, "Administrator %q created (id %s)\n", admin.Username, admin.ID)
				return nil
			})
		},
	}

	listCompaniesCmd = &cobra.Command{
		Use:          "list-companies",
		Short:        "List all companies with their user counts",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTenancy(cmd.Context(), func(ctx context.Context, cfg *config.APIServerConfig, svc *tenancy.Service) error {
				companies, err := svc.ListCompanies(ctx, access.SystemPrincipal(), database.CompanyFilter{}, false)
				if err != nil {
					return describe(cfg, err)
				}
				printCompanies(cmd.OutOrStdout(), companies)
				return nil
			})
		},
	}
)

func init() {
	flags := createMasterCmd.Flags()
	flags.StringVar(&masterInput.CompanyName, "name", "", "company name")
	flags.StringVar(&masterInput.Slug, "slug", "", "company slug, derived from the name when empty")
	flags.StringVar(&masterInput.CNPJ, "cnpj", "", "company CNPJ")
	flags.StringVar(&masterInput.Email, "email", "", "company and administrator email")
	flags.StringVar(&masterInput.Username, "username", "", "administrator username")
	flags.StringVar(&masterInput.Password, "password", "", "administrator password")
	_ = createMasterCmd.MarkFlagRequired("name")
	_ = createMasterCmd.MarkFlagRequired("username")
	_ = createMasterCmd.MarkFlagRequired("password")
}

// withTenancy opens the configured database for a one-shot administrative command
func withTenancy(ctx context.Context, fn func(context.Context, *config.APIServerConfig, *tenancy.Service) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initI18n(&cfg.I18n)

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	svc := tenancy.NewService(db, access.NewPolicy(db), zap.NewNop())
	return fn(ctx, cfg, svc)
}

// describe turns a domain error into a translated message for the terminal
func describe(cfg *config.APIServerConfig, err error) error {
	e := errorx.As(err)
	if e == nil || e.MessageID == "" {
		return err
	}
	msg := i18n.GetTranslator().Translate(e.MessageID, cfg.I18n.DefaultLang, e.Data)
	if e.Field != "" {
		return fmt.Errorf("%s: %s", e.Field, msg)
	}
	return fmt.Errorf("%s", msg)
}

func printCompanies(out io.Writer, companies []*database.Company) {
	if len(companies) == 0 {
		fmt.Fprintln(out, "No companies found")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSLUG\tTYPE\tACTIVE\tUSERS")
	for _, c := range companies {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\n", c.Name, c.Slug, c.Type, c.IsActive, c.UserCount)
	}
	_ = w.Flush()
}
