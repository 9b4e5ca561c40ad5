// Package notify delivers the out-of-band 2FA mail.
//
// [SMTP] talks to a mail relay with implicit TLS on port 465 and STARTTLS
// elsewhere. [Log] is a development notifier that records the redacted
// recipient and subject through slog but never the body. [Recorder] keeps
// messages in memory for tests.
package notify
