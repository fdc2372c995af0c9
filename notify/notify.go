// Package notify sends the task-completion emails referenced throughout
// spec §3/§6 (TransformTask.send_email, PublisherTask.send_email,
// cmn.Config.Email) once a task reaches a terminal state.
//
// Grounded on gopkg.in/gomail.v2 (present in the retrieval pack, e.g.
// kubevela-kubevela's go.mod), enabled whenever cmn.Config.Email.Enabled()
// is true; the charm-authored HTML/email templates themselves remain
// out of scope per spec §1 ("the HTML/email templates").
/*
 * Copyright (c) 2026, OSCIED Project. All rights reserved.
 */
package notify

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/oscied/orchestrator/cmn"
)

// Notifier sends task-completion emails. A Notifier constructed with a nil
// dialer is a no-op (cmn.Config.Email unset): Send always succeeds
// immediately without attempting delivery.
type Notifier struct {
	dialer *gomail.Dialer
	from   string
}

// New builds a Notifier from cmn.Config.Email; Enabled()==false yields a
// disabled Notifier rather than an error, since email is opt-in per spec §6.
func New(cfg cmn.EmailConf) *Notifier {
	if !cfg.Enabled() {
		return &Notifier{}
	}
	d := gomail.NewDialer(cfg.Server, 587, cfg.Username, cfg.Password)
	d.SSL = cfg.TLS
	return &Notifier{dialer: d, from: cfg.Address}
}

func (n *Notifier) Enabled() bool { return n.dialer != nil }

// TaskOutcome is the minimal content a completion email carries: which kind
// of task, its id, its final status, and an optional error/publish detail.
type TaskOutcome struct {
	Kind    string // "transform" | "publisher"
	TaskID  string
	Status  string
	Detail  string
}

// Send emails recipient a plain-text completion notice for outcome. A
// disabled Notifier returns nil without sending anything, mirroring the
// "send_email: false" code path having no observable effect.
func (n *Notifier) Send(recipient string, outcome TaskOutcome) error {
	if !n.Enabled() {
		return nil
	}
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", fmt.Sprintf("OSCIED %s task %s: %s", outcome.Kind, outcome.TaskID, outcome.Status))
	body := fmt.Sprintf("Task %s (%s) finished with status %s.", outcome.TaskID, outcome.Kind, outcome.Status)
	if outcome.Detail != "" {
		body += "\n\n" + outcome.Detail
	}
	m.SetBody("text/plain", body)
	if err := n.dialer.DialAndSend(m); err != nil {
		return cmn.Wrap(err, cmn.KindTransient, "failed to send notification email")
	}
	return nil
}
