// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package mail sends account-verification emails. No SMTP or mail-builder
// library is reachable from this module's dependency set (none of the
// retrieved example repos import one), so delivery is built directly on
// net/smtp, which is sufficient for the single plain-text message this
// package ever sends.
package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/torrentindex/index/internal/domain"
)

// Mailer sends the "verify your account" email. Defined as an interface so
// the users service can be tested without a real SMTP server.
type Mailer interface {
	SendVerificationEmail(to, username, verificationURL string) error
}

// SMTPMailer delivers mail through a configured SMTP relay, with or without
// authentication depending on whether credentials are set.
type SMTPMailer struct {
	cfg domain.MailConfig
}

func NewSMTPMailer(cfg domain.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendVerificationEmail(to, username, verificationURL string) error {
	body := buildVerificationBody(m.cfg.From, m.cfg.ReplyTo, to, username, verificationURL)

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTP.Server, m.cfg.SMTP.Port)

	var auth smtp.Auth
	if m.cfg.SMTP.Credentials.Username != "" && m.cfg.SMTP.Credentials.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTP.Credentials.Username, m.cfg.SMTP.Credentials.Password, m.cfg.SMTP.Server)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(body)); err != nil {
		log.Error().Err(err).Str("to", to).Msg("failed to send verification email")
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

func buildVerificationBody(from, replyTo, to, username, verificationURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	if replyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", replyTo)
	}
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Verify your account\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Welcome, %s!\r\n\r\n", username)
	b.WriteString("Please click the link below to verify your account.\r\n")
	b.WriteString(verificationURL + "\r\n\r\n")
	b.WriteString("If this account wasn't created by you, you can ignore this email.\r\n")
	return b.String()
}
