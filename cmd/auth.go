package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/reelbox/clerk"
	"github.com/s0up4200/reelbox/session"
	"github.com/s0up4200/reelbox/views"
)

// keySignUpID holds the sign-up waiting for its email code between runs
const keySignUpID = "sign_up_id"

var (
	emailAddress string
	password     string
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in, sign up and sign out",
}

var signInCmd = &cobra.Command{
	Use:   "sign-in",
	Short: "Sign in with email and password",
	Args:  cobra.NoArgs,
	RunE:  runSignIn,
}

var signUpCmd = &cobra.Command{
	Use:   "sign-up",
	Short: "Create an account; a verification code is emailed to you",
	Args:  cobra.NoArgs,
	RunE:  runSignUp,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <code>",
	Short: "Finish signing up with the emailed verification code",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

var signOutCmd = &cobra.Command{
	Use:   "sign-out",
	Short: "Sign out and forget the cached session",
	Args:  cobra.NoArgs,
	RunE:  runSignOut,
}

// profileCmd represents the profile command
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runProfile,
}

func init() {
	rootCmd.AddCommand(authCmd, profileCmd)
	authCmd.AddCommand(signInCmd, signUpCmd, verifyCmd, signOutCmd)

	for _, c := range []*cobra.Command{signInCmd, signUpCmd} {
		c.Flags().StringVarP(&emailAddress, "email", "e", "", "email address (prompted when empty)")
		c.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	}
}

func runSignIn(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	email, pass, err := credentials(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	attempt, err := identity.SignIn(ctx, email, pass)
	if err != nil {
		return err
	}
	if !attempt.Complete() {
		return fmt.Errorf("sign in needs another step (%s), which is not supported here", attempt.Status)
	}

	return startSession(ctx, attempt.CreatedSessionID)
}

func runSignUp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	email, pass, err := credentials(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	attempt, err := identity.SignUp(ctx, email, pass)
	if err != nil {
		return err
	}
	if attempt.Complete() {
		return startSession(ctx, attempt.CreatedSessionID)
	}

	if err := identity.PrepareEmailVerification(ctx, attempt.ID); err != nil {
		return err
	}

	// the verify run needs the same client to attempt the code
	if err := tokens.Save(ctx, keySignUpID, attempt.ID); err != nil {
		return fmt.Errorf("failed to remember sign-up: %w", err)
	}
	if err := tokens.Save(ctx, session.KeyClientToken, identity.ClientToken()); err != nil {
		return fmt.Errorf("failed to remember sign-up: %w", err)
	}

	fmt.Printf("A verification code was sent to %s.\n", email)
	fmt.Println("Run 'reelbox auth verify <code>' to finish signing up.")
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	signUpID, ok, err := tokens.Get(ctx, keySignUpID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no sign-up is waiting for verification, run 'reelbox auth sign-up' first")
	}

	attempt, err := identity.AttemptEmailVerification(ctx, signUpID, args[0])
	if err != nil {
		return err
	}
	if !attempt.Complete() {
		return fmt.Errorf("sign up is not complete yet (%s)", attempt.Status)
	}

	if err := tokens.Delete(ctx, keySignUpID); err != nil {
		logger.Warn().Err(err).Msg("Failed to forget verified sign-up")
	}
	return startSession(ctx, attempt.CreatedSessionID)
}

func runSignOut(cmd *cobra.Command, args []string) error {
	if !sessions.SignedIn() {
		fmt.Println(views.NotSignedIn)
		return nil
	}
	if err := sessions.End(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("✓ Signed out")
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	user, err := identity.CurrentUser(cmd.Context())
	if err != nil && !errors.Is(err, clerk.ErrNoSession) {
		return err
	}
	fmt.Print(formatter.FormatProfile(user))
	return nil
}

func startSession(ctx context.Context, sessionID string) error {
	if err := sessions.Start(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	user, err := identity.CurrentUser(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Signed in but failed to load the user")
		fmt.Println("✓ Signed in")
		return nil
	}
	fmt.Print(formatter.FormatProfile(user))
	return nil
}

// credentials returns the --email and --password flags, prompting for any
// that were left empty
func credentials(in io.Reader, out io.Writer) (string, string, error) {
	reader := bufio.NewReader(in)

	email := strings.TrimSpace(emailAddress)
	if email == "" {
		var err error
		if email, err = prompt(reader, out, "Email: "); err != nil {
			return "", "", err
		}
	}

	pass := password
	if pass == "" {
		var err error
		if pass, err = prompt(reader, out, "Password: "); err != nil {
			return "", "", err
		}
	}

	if email == "" || pass == "" {
		return "", "", errors.New("email and password are required")
	}
	return email, pass, nil
}

func prompt(reader *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
