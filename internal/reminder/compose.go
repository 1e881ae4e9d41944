// Package reminder composes and sends "certificate ready" reminders.
package reminder

import (
	"fmt"

	"churchclerk/internal/core"
	"churchclerk/internal/notify"
)

// Compose builds the reminder for one certificate. Dedications with a
// recorded guardian address the guardian and name the child; everything
// else addresses the certificate holder. WhatsApp reuses the SMS text.
func Compose(ch core.Channel, c core.Certificate, org string) notify.Message {
	msg := notify.Message{Channel: ch, Recipient: c.ContactFor(ch)}
	if ch == core.ChannelEmail {
		msg.Subject, msg.Body = emailText(c, org)
	} else {
		msg.Body = shortText(c, org)
	}
	return msg
}

func shortText(c core.Certificate, org string) string {
	if c.Type == core.Dedication {
		greeting := "Dear parent"
		if c.ParentGuardian != "" {
			greeting = "Dear " + c.ParentGuardian
		}
		return fmt.Sprintf("%s, the dedication certificate for %s is ready for collection at %s Church office. "+
			"We celebrate with you! God bless you.", greeting, c.FullName, org)
	}
	return fmt.Sprintf("Congratulations %s! Your baptism certificate is ready for collection at %s Church clerk's office. "+
		"We look forward to seeing you. Welcome to the %s SDA Family.", c.FullName, org, org)
}

func emailText(c core.Certificate, org string) (subject, body string) {
	if c.Type == core.Dedication {
		greeting := "Dear Parent/Guardian"
		if c.ParentGuardian != "" {
			greeting = "Dear " + c.ParentGuardian
		}
		subject = fmt.Sprintf("Congratulations! Child Dedication Certificate Ready - %s", c.FullName)
		body = fmt.Sprintf("%s,\n\n"+
			"Greetings in the name of our Lord Jesus Christ!\n\n"+
			"We are delighted to inform you that the Child Dedication certificate for %s is ready. "+
			"It was such a blessing to have your family participate in this sacred milestone at %s SDA Church.\n\n"+
			"Please visit the clerk's office at your earliest convenience to pick up the certificate.\n\n"+
			"May God continue to grant you wisdom and grace as you raise %s in the ways of the Lord.\n\n"+
			"Blessings,\n"+
			"%s Church Administration",
			greeting, c.FullName, org, c.FullName, org)
		return subject, body
	}

	subject = fmt.Sprintf("Your Baptism Certificate is Ready! - %s", c.FullName)
	body = fmt.Sprintf("Dear %s,\n\n"+
		"Congratulations on your baptism! We rejoice with you as you take this significant step in your walk with Christ.\n\n"+
		"We are pleased to inform you that your baptism certificate has been processed and is ready for collection at the clerk's office.\n\n"+
		"We look forward to seeing you soon and continuing this journey of faith together.\n\n"+
		"Grace and Peace,\n"+
		"%s Church Administration",
		c.FullName, org)
	return subject, body
}
