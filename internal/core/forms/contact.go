package forms

import "github.com/JonMunkholm/FormRelay/internal/core"

// ContactRequestTitle is the form title of the public contact form.
const ContactRequestTitle = "Contact"

func contactRequest(b Boards) core.MappingSet {
	return core.MappingSet{
		FormTitle: ContactRequestTitle,
		BoardID:   b.Leads,
		GroupID:   b.LeadsGroup,
		NameField: "name",
		Rules: []core.ColumnRule{
			{ColumnID: "email", Path: "email", Type: core.ColumnText, Transform: lowerEmail},
			{ColumnID: "phone", Path: "phone", Type: core.ColumnText},
			{ColumnID: "company", Path: "company.name", Type: core.ColumnText, Transform: collapseSpace},
			{ColumnID: "long_text_message", Path: "message", Type: core.ColumnText, Transform: collapseSpace},
			{ColumnID: "dropdown_interests", Path: "interests", Type: core.ColumnDropdown},
			{ColumnID: "checkbox_newsletter", Path: "newsletter", Type: core.ColumnCheckbox, Transform: yesNo},
			{ColumnID: "status", Type: core.ColumnStatus, Default: core.String("New lead")},
		},
	}
}
