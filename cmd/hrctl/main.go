// Command hrctl is a terminal client for the HR Support backend: chat with
// the assistant, review and decide pending approvals, read notifications,
// and onboard a new company from a CSV employee sheet.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"hrsupport/internal/config"
	"hrsupport/internal/engine"
	"hrsupport/internal/gateway"
	"hrsupport/internal/provision"
)

func main() {
	log.SetFlags(0)
	cfg := config.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "onboard":
		err = runOnboard(ctx, cfg, os.Args[2:])
	case "chat":
		err = runChat(ctx, cfg, os.Args[2:])
	case "approvals":
		err = runApprovals(ctx, cfg, os.Args[2:])
	case "notifications":
		err = runNotifications(ctx, cfg, os.Args[2:])
	case "letter":
		err = runLetter(ctx, cfg, os.Args[2:])
	case "support":
		err = runSupport(ctx, cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("hrctl: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: hrctl <command> [flags]

commands:
  onboard        register a company and provision employees from a CSV
  chat           talk to the HR assistant
  approvals      list pending approvals and decide them
  notifications  list notifications and mark them read
  letter         download the letter for an approved document request
  support        show the company's HR support contact`)
}

type loginFlags struct {
	api      string
	company  string
	employee string
	password string
}

func addLoginFlags(fs *flag.FlagSet, cfg config.Config, lf *loginFlags) {
	fs.StringVar(&lf.api, "api", cfg.APIBaseURL, "backend base URL")
	fs.StringVar(&lf.company, "company", os.Getenv("HRSUPPORT_COMPANY"), "company id")
	fs.StringVar(&lf.employee, "employee", os.Getenv("HRSUPPORT_EMPLOYEE"), "employee id")
	fs.StringVar(&lf.password, "password", os.Getenv("HRSUPPORT_PASSWORD"), "password")
}

func login(ctx context.Context, lf loginFlags) (gateway.Session, *gateway.Client, error) {
	if lf.company == "" || lf.employee == "" || lf.password == "" {
		return gateway.Session{}, nil, errors.New("company, employee, and password are required (flags or HRSUPPORT_* env)")
	}
	session, err := gateway.Login(ctx, lf.api, lf.company, lf.employee, lf.password)
	if err != nil {
		return gateway.Session{}, nil, fmt.Errorf("login: %w", err)
	}
	return session, gateway.NewClient(lf.api, session), nil
}

func runOnboard(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("onboard", flag.ExitOnError)
	api := fs.String("api", cfg.APIBaseURL, "backend base URL")
	name := fs.String("name", "", "company name (required)")
	adminName := fs.String("admin-name", "", "admin display name")
	adminEmail := fs.String("admin-email", "", "admin email (required)")
	sheet := fs.String("sheet", "", "path to the employee CSV")
	policyText := fs.String("policy-text", "", "inline policy text")
	policyDoc := fs.String("policy-doc", "", "path to a policy document")
	supportEmail := fs.String("support-email", "", "HR support email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	input := provision.Input{
		Company: gateway.CompanyFields{
			Name:         *name,
			AdminName:    *adminName,
			AdminEmail:   *adminEmail,
			SupportEmail: *supportEmail,
		},
		PolicyText: *policyText,
	}
	if *sheet != "" {
		content, err := os.ReadFile(*sheet)
		if err != nil {
			return fmt.Errorf("read sheet: %w", err)
		}
		input.Source = &gateway.SourceDescriptor{
			Kind:    "csv",
			Name:    baseName(*sheet),
			Content: content,
		}
	}
	if *policyDoc != "" {
		content, err := os.ReadFile(*policyDoc)
		if err != nil {
			return fmt.Errorf("read policy document: %w", err)
		}
		input.PolicyDoc = &gateway.PolicyAttachment{
			FileName: baseName(*policyDoc),
			Content:  content,
		}
	}

	// Only registration runs unauthenticated. Every later step needs a
	// session, so the orchestrator signs in as the new admin: with the
	// dev password when the server runs without SMTP, otherwise with the
	// emailed password typed in here.
	client := gateway.NewClient(*api, gateway.Session{})
	adminLogin := func(ctx context.Context, admin gateway.RegisterResult) (gateway.Gateway, error) {
		password := admin.DevAdminPassword
		if password == "" {
			fmt.Printf("company registered: %s\n", admin.CompanyID)
			fmt.Printf("admin credentials were emailed to %s\n", *adminEmail)
			fmt.Printf("password for %s: ", admin.AdminEmployeeID)
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return nil, fmt.Errorf("read admin password: %w", err)
			}
			password = strings.TrimSpace(line)
		}
		session, err := gateway.Login(ctx, *api, admin.CompanyID, admin.AdminEmployeeID, password)
		if err != nil {
			return nil, fmt.Errorf("admin sign-in: %w", err)
		}
		return gateway.NewClient(*api, session), nil
	}
	result, err := provision.NewWithLogin(client, adminLogin).Run(ctx, input)
	if err != nil {
		return err
	}

	fmt.Printf("company registered: %s (admin %s)\n", result.CompanyID, result.Admin.AdminEmployeeID)
	if result.DataSourceID != "" {
		fmt.Printf("data source attached: %s (key column %q)\n", result.DataSourceID, result.InferredSchema.PrimaryKey)
	}
	if result.PoliciesAttached {
		fmt.Println("policies attached")
	}
	if result.Provisioned != nil {
		fmt.Printf("provisioned %d employees\n", result.Provisioned.Count)
		for _, line := range result.Provisioned.Detail {
			fmt.Printf("  %s\n", line)
		}
	}
	for step, stepErr := range result.StepErrors {
		fmt.Printf("step %s failed: %v\n", step, stepErr)
	}
	return nil
}

func runChat(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	var lf loginFlags
	addLoginFlags(fs, cfg, &lf)
	if err := fs.Parse(args); err != nil {
		return err
	}
	session, client, err := login(ctx, lf)
	if err != nil {
		return err
	}

	chatLog := engine.NewChatLog(client)
	fmt.Printf("signed in as %s (%s). Type a message, or 'quit' to exit.\n", session.DisplayName, session.Role)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		reply, err := chatLog.Send(ctx, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Println(reply.Text)
		for _, action := range reply.Actions {
			fmt.Printf("  [%s]\n", action)
		}
	}
}

func runApprovals(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("approvals", flag.ExitOnError)
	var lf loginFlags
	addLoginFlags(fs, cfg, &lf)
	decide := fs.String("decide", "", "request id to decide")
	outcome := fs.String("outcome", "", "approved or rejected")
	note := fs.String("note", "", "decision note")
	if err := fs.Parse(args); err != nil {
		return err
	}
	session, client, err := login(ctx, lf)
	if err != nil {
		return err
	}

	ctrl := engine.NewController(session, client)
	poller := engine.NewPoller(session, client, ctrl, cfg.PollInterval)
	poller.Refresh(ctx)

	if *decide != "" {
		if err := ctrl.DecideRequest(ctx, *decide, gateway.Status(*outcome), *note); err != nil {
			if errors.Is(err, gateway.ErrConflict) {
				return fmt.Errorf("request %s was already decided elsewhere", *decide)
			}
			return err
		}
		fmt.Printf("request %s %s\n", *decide, *outcome)
		return nil
	}

	requests := ctrl.Requests().Snapshot()
	if len(requests) == 0 {
		fmt.Println("no requests")
		return nil
	}
	for _, r := range requests {
		summary := r.AISummary
		if summary == "" {
			summary = r.Context
		}
		fmt.Printf("%s  %-10s %-9s %s\n", r.ID, r.Type, r.Status, summary)
	}
	return nil
}

func runNotifications(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("notifications", flag.ExitOnError)
	var lf loginFlags
	addLoginFlags(fs, cfg, &lf)
	markRead := fs.String("read", "", "notification id to mark read")
	if err := fs.Parse(args); err != nil {
		return err
	}
	session, client, err := login(ctx, lf)
	if err != nil {
		return err
	}

	ctrl := engine.NewController(session, client)
	poller := engine.NewPoller(session, client, ctrl, cfg.PollInterval)
	poller.Refresh(ctx)

	if *markRead != "" {
		if err := ctrl.MarkNotificationRead(ctx, *markRead); err != nil {
			return err
		}
		fmt.Printf("notification %s marked read\n", *markRead)
		return nil
	}

	notifications := ctrl.Notifications().Snapshot()
	if len(notifications) == 0 {
		fmt.Println("no notifications")
		return nil
	}
	for _, n := range notifications {
		marker := " "
		if !n.IsRead {
			marker = "*"
		}
		fmt.Printf("%s %s  %s: %s\n", marker, n.ID, n.Title, n.Message)
	}
	return nil
}

func runLetter(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("letter", flag.ExitOnError)
	var lf loginFlags
	addLoginFlags(fs, cfg, &lf)
	request := fs.String("request", "", "approved document request id (required)")
	format := fs.String("format", "pdf", "html, pdf, or docx")
	out := fs.String("out", "", "output path (defaults to the server-provided name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *request == "" {
		return errors.New("-request is required")
	}
	_, client, err := login(ctx, lf)
	if err != nil {
		return err
	}

	letter, err := client.DownloadLetter(ctx, *request, *format)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = letter.Filename
	}
	if path == "" {
		path = "letter." + *format
	}
	if err := os.WriteFile(path, letter.Data, 0o644); err != nil {
		return fmt.Errorf("write letter: %w", err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", path, len(letter.Data))
	return nil
}

func runSupport(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("support", flag.ExitOnError)
	var lf loginFlags
	addLoginFlags(fs, cfg, &lf)
	if err := fs.Parse(args); err != nil {
		return err
	}
	session, client, err := login(ctx, lf)
	if err != nil {
		return err
	}

	info, err := client.SupportInfo(ctx, session.CompanyID)
	if err != nil {
		return err
	}
	if info.Message != "" {
		fmt.Println(info.Message)
	}
	if info.Email != "" {
		fmt.Printf("email:    %s\n", info.Email)
	}
	if info.Phone != "" {
		fmt.Printf("phone:    %s\n", info.Phone)
	}
	if info.WhatsApp != "" {
		fmt.Printf("whatsapp: %s\n", info.WhatsApp)
	}
	return nil
}

func baseName(path string) string {
	if idx := strings.LastIndexAny(path, "/\\"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
