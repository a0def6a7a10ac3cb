package notify

import (
	"github.com/a-h/templ"

	"github.com/photovault/photovault/pkg/email/templates"
)

type site struct {
	AppName string
	AppURL  string
}

func (s site) billingLink() templ.Component {
	u := s.AppURL + "/billing"
	return templates.Link(u, u)
}

type graceData struct {
	site
	Name     string
	Deadline string
	Amount   string
	Ending   bool
}

func graceEmail(d graceData) templ.Component {
	reason := templates.Paragraph(templates.Text("We could not collect your latest " + d.AppName + " payment."))
	if d.Ending {
		reason = templates.Paragraph(templates.Text("Your " + d.AppName + " subscription is set to end."))
	}
	return templates.Letter(d.Name,
		reason,
		templates.Paragraph(
			templates.Text("Your galleries stay available until "+d.Deadline+". Renew for "+d.Amount+" at "),
			d.billingLink(),
			templates.Text(" to keep access."),
		),
		templates.Paragraph(templates.Text("Family members on your account can also take over the payment.")),
	)
}

type suspendedData struct {
	site
	Name   string
	Amount string
}

func suspendedEmail(d suspendedData) templ.Component {
	return templates.Letter(d.Name,
		templates.Paragraph(templates.Text("Your "+d.AppName+" galleries are paused because payment is overdue. Nothing has been deleted.")),
		templates.Paragraph(templates.Text("Pay "+d.Amount+" at "), d.billingLink(), templates.Text(" and access comes back right away.")),
	)
}

func reactivatedEmail(s site, name string) templ.Component {
	return templates.Letter(name,
		templates.Paragraph(templates.Text("Thanks, your payment went through and your "+s.AppName+" galleries are available again.")),
	)
}

type takeoverData struct {
	site
	Primary string
	Payer   string
	Amount  string
	Overdue bool
}

func takeoverPrimaryEmail(d takeoverData) templ.Component {
	return templates.Letter(d.Primary,
		templates.Paragraph(
			templates.Text(d.Payer+" has taken over the "+d.AppName+" subscription for your galleries."),
			templates.When(d.Overdue, templates.Text(" Your overdue balance is settled.")),
		),
		templates.Paragraph(templates.Text("Your previous subscription has been cancelled, so you will not be charged again.")),
	)
}

func takeoverPayerEmail(d takeoverData) templ.Component {
	return templates.Letter(d.Payer,
		templates.Paragraph(templates.Text("You now pay "+d.Amount+" for "+d.Primary+"'s "+d.AppName+" galleries. Thank you for keeping the family photos safe.")),
		templates.Paragraph(templates.Text("Manage billing at "), d.billingLink(), templates.Text(".")),
	)
}
