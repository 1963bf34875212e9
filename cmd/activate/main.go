package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/denzelpenzel/activation/internal/graphql"
	"github.com/denzelpenzel/activation/internal/logger"
	"github.com/denzelpenzel/activation/internal/models"
	"github.com/denzelpenzel/activation/internal/services"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const maxAttempts = 3

// readPassword reads a password from stdin without echoing it. Piped input
// falls back to a plain line read.
func readPassword(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	passwordBytes, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}

	return string(passwordBytes), nil
}

func readLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printRequirements(password, confirmation string) {
	for _, status := range services.EvaluatePassword(password) {
		mark := "✗"
		if status.Met {
			mark = "✓"
		}
		fmt.Printf("  %s %s\n", mark, status.Label)
	}

	if match := services.CheckMatch(password, confirmation); match.Visible {
		if match.Matches {
			fmt.Println("  ✓ Passwords match")
		} else {
			fmt.Println("  ✗ Passwords do not match")
		}
	}
}

func readForm(reader *bufio.Reader) (models.ActivationForm, error) {
	var form models.ActivationForm
	var err error

	if form.EmployeeID, err = readLine(reader, "Employee ID: "); err != nil {
		return form, err
	}
	if form.PersonalEmail, err = readLine(reader, "Personal email: "); err != nil {
		return form, err
	}
	if form.Password, err = readPassword(reader, "Password: "); err != nil {
		return form, err
	}
	if form.PasswordConfirmation, err = readPassword(reader, "Confirm password: "); err != nil {
		return form, err
	}

	printRequirements(form.Password, form.PasswordConfirmation)

	consent, err := readLine(reader, "I accept the processing of my personal data [y/N]: ")
	if err != nil {
		return form, err
	}
	switch strings.ToLower(strings.TrimSpace(consent)) {
	case "y", "yes":
		form.Consent = true
	}

	return form, nil
}

func main() {
	os.Exit(run())
}

func run() int {
	token := flag.String("token", "", "activation token from the activation link")
	apiURL := flag.String("api", os.Getenv("GRAPHQL_URL"), "GraphQL endpoint of the backend")
	timeout := flag.Duration("timeout", 10*time.Second, "timeout for each backend call")
	verbose := flag.Bool("v", false, "log backend calls")
	flag.Parse()

	if *apiURL == "" {
		fmt.Fprintln(os.Stderr, "missing -api (or GRAPHQL_URL)")
		return 2
	}

	zapLogger := zap.NewNop()
	if *verbose {
		var err error
		if zapLogger, err = logger.NewLoggerFor("development"); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
			return 1
		}
	}
	defer zapLogger.Sync()

	client := graphql.NewClient(*apiURL, graphql.NewHTTPClient(*timeout), zapLogger)
	activationService := services.NewActivationService(client, *timeout, zapLogger)
	flowService := services.NewFlowService(activationService, services.NewMemoryGuard(2*(*timeout)), "", zapLogger)

	ctx := context.Background()

	fmt.Println("Validating activation token...")
	flow := flowService.Start(ctx, *token)
	view := flowService.Render(flow)
	if view.ShowTokenError {
		fmt.Fprintln(os.Stderr, view.TokenError)
		return 1
	}

	fmt.Printf("Activating account for %s <%s>\n", view.FullName, view.Email)
	if view.ExpiresAt != "" {
		fmt.Printf("This link is valid until %s\n", view.ExpiresAt)
	}

	reader := bufio.NewReader(os.Stdin)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		form, err := readForm(reader)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Failed to read input:", err)
			return 1
		}

		if err := flowService.Submit(ctx, flow, form); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		if flow.State == models.StateSuccess {
			fmt.Println("Account activated. You can now sign in.")
			if flow.UserID != "" {
				fmt.Println("User ID:", flow.UserID)
			}
			return 0
		}

		fmt.Fprintln(os.Stderr, "Error:", flowService.Render(flow).InlineError)
	}

	return 1
}
