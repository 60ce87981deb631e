package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/otzivi/authcore/internal/models"
)

// eventDisplayName maps event types to user-facing alert names.
func eventDisplayName(eventType models.EventType) string {
	switch eventType {
	case models.EventFailedLogin:
		return "Failed sign-in attempt"
	case models.EventMultipleFailedAttempts:
		return "Multiple failed sign-in attempts"
	case models.EventSuccessfulLogin:
		return "Successful sign-in"
	case models.EventNewDeviceLogin:
		return "Sign-in from a new device"
	case models.EventLogout:
		return "Sign-out"
	case models.EventPasswordChanged:
		return "Password changed"
	case models.EventEmailChanged:
		return "Email address changed"
	case models.EventTwoFactorEnabled:
		return "Two-factor authentication enabled"
	case models.EventTwoFactorDisabled:
		return "Two-factor authentication disabled"
	case models.EventTwoFactorSucceeded:
		return "Two-factor check passed"
	case models.EventTwoFactorFailed:
		return "Two-factor check failed"
	case models.EventChallengeChanged:
		return "Security question changed"
	case models.EventSuspiciousActivity:
		return "Suspicious activity"
	case models.EventAccountLocked:
		return "Account locked"
	case models.EventPasswordResetRequest:
		return "Password reset requested"
	case models.EventRoleChanged:
		return "Account role changed"
	case models.EventAccountDeleted:
		return "Account deleted"
	case models.EventContentModerated:
		return "Content moderated"
	default:
		return "Security event"
	}
}

func severityPrefix(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "[CRITICAL]"
	case models.SeverityHigh:
		return "[WARNING]"
	case models.SeverityMedium:
		return "[NOTICE]"
	default:
		return "[INFO]"
	}
}

func notifySubject(eventType models.EventType, severity models.Severity) string {
	return fmt.Sprintf("%s %s", severityPrefix(severity), eventDisplayName(eventType))
}

func notifyBody(event *models.SecurityEvent, account *models.Account) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", eventDisplayName(event.EventType))
	fmt.Fprintf(&b, "Account: %s\n", account.Name)
	fmt.Fprintf(&b, "Time: %s\n", event.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	if event.ClientAddress != nil && *event.ClientAddress != "" {
		fmt.Fprintf(&b, "IP address: %s\n", *event.ClientAddress)
	}
	fmt.Fprintf(&b, "Details: %s\n\n", event.Description)

	b.WriteString("Recommendations:\n")
	b.WriteString(recommendationsFor(event.EventType))
	b.WriteString("\nThis is an automated message from the account security system.\n")
	b.WriteString("If you did not perform this action, please contact support immediately.\n")

	return b.String()
}

func recommendationsFor(eventType models.EventType) string {
	switch eventType {
	case models.EventFailedLogin:
		return "- If this was not you, review the strength of your password\n" +
			"- Consider enabling the security question as a second factor\n"
	case models.EventMultipleFailedAttempts:
		return "- Sign-in from this address was temporarily blocked\n" +
			"- Check whether your password may have been compromised\n" +
			"- Contact support if you suspect a break-in\n"
	case models.EventNewDeviceLogin:
		return "- Make sure this was you\n" +
			"- Review active sessions in your account settings\n"
	case models.EventPasswordChanged:
		return "- If this was not you, recover access immediately via password reset\n" +
			"- Review your account security settings\n"
	case models.EventTwoFactorDisabled:
		return "- If this was not you, re-enable two-factor authentication immediately\n" +
			"- Change your password as a precaution\n"
	default:
		return "- Make sure all recent account activity was performed by you\n" +
			"- Review your security settings regularly\n"
	}
}

func adminSubject(eventType models.EventType) string {
	return fmt.Sprintf("[CRITICAL] security event: %s", eventDisplayName(eventType))
}

func adminBody(event *models.SecurityEvent, account *models.Account) string {
	var b strings.Builder

	b.WriteString("High-severity security event\n\n")
	fmt.Fprintf(&b, "Account: %s (%s)\n", account.Name, account.Email)
	fmt.Fprintf(&b, "Event: %s\n", eventDisplayName(event.EventType))
	fmt.Fprintf(&b, "Time: %s\n", event.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	if event.ClientAddress != nil {
		fmt.Fprintf(&b, "IP address: %s\n", *event.ClientAddress)
	}
	if event.UserAgent != nil {
		fmt.Fprintf(&b, "User-Agent: %s\n", *event.UserAgent)
	}
	fmt.Fprintf(&b, "Details: %s\n", event.Description)

	return b.String()
}

func describeSuspiciousActivity(count int, window time.Duration) string {
	return fmt.Sprintf("suspicious activity: %d security events within the last %s", count, window)
}
