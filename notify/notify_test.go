package notify_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/notify"
)

var _ = Describe("Notifier", func() {
	It("is disabled when no email server is configured, and Send is a no-op", func() {
		n := notify.New(cmn.EmailConf{})
		Expect(n.Enabled()).To(BeFalse())
		Expect(n.Send("user@example.com", notify.TaskOutcome{Kind: "transform", TaskID: "t1", Status: "SUCCESS"})).To(Succeed())
	})

	It("is enabled once an email server is configured", func() {
		n := notify.New(cmn.EmailConf{Server: "smtp.example.com", Address: "noreply@example.com"})
		Expect(n.Enabled()).To(BeTrue())
	})
})
