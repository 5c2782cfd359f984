package forms

import "github.com/JonMunkholm/FormRelay/internal/core"

// CampaignRequestTitle is the form title of the campaign request form.
const CampaignRequestTitle = "Campaign Request"

// campaignRequest maps the campaign request form. Each entry of its
// "sends" list becomes a child item on the sends board and a reservation.
func campaignRequest(b Boards) core.MappingSet {
	return core.MappingSet{
		FormTitle: CampaignRequestTitle,
		BoardID:   b.Campaigns,
		GroupID:   b.CampaignGroup,
		NameField: "campaign_name",
		Rules: []core.ColumnRule{
			{ColumnID: "long_text_briefing", Path: "briefing", Type: core.ColumnText, Transform: collapseSpace},
			{ColumnID: "text_segments", Path: "segments", Type: core.ColumnText, Transform: joinList},
			{ColumnID: "connect_boards_client", Path: "client", Type: core.ColumnBoardRelation, RelationBoard: b.Clients},
			{ColumnID: "people_requester", Path: "requester_email", Type: core.ColumnPeople, Transform: lowerEmail},
			{ColumnID: "date_deadline", Path: "deadline", Type: core.ColumnDate},
			{ColumnID: "status", Path: "status", Type: core.ColumnStatus, Default: core.String("Briefing received")},
			{ColumnID: "numbers_budget", Path: "budget", Type: core.ColumnNumber},
			{ColumnID: "dropdown_channels", Path: "channels", Type: core.ColumnDropdown},
			{ColumnID: "tags", Path: "tags", Type: core.ColumnTags},
			{ColumnID: "files", Path: "attachments", Type: core.ColumnFile},
			{ColumnID: "timeline", Path: "campaign_period", Type: core.ColumnTimeline},
			{ColumnID: "checkbox_urgent", Path: "urgent", Type: core.ColumnCheckbox, Transform: yesNo, Default: core.Bool(false)},
		},
		DescriptorColumn: "text_descriptor",
		Descriptor: map[core.DescriptorCategory]core.DescriptorSource{
			core.CategoryClient:      {Path: "client", BoardID: b.Clients},
			core.CategoryFormat:      {Path: "format", BoardID: b.Formats},
			core.CategoryObjective:   {Path: "objective", BoardID: b.Objectives},
			core.CategoryAppeal:      {Path: "appeal"},
			core.CategoryPersona:     {Path: "persona", BoardID: b.Personas},
			core.CategoryArea:        {Path: "area", BoardID: b.Areas},
			core.CategoryProduct:     {Path: "product", BoardID: b.Products},
			core.CategorySubproduct:  {Path: "subproduct", BoardID: b.Products},
			core.CategorySeasonality: {Path: "seasonality"},
		},
		TeamColumn: "people_team",
		Demand: &core.DemandMapping{
			Field:          "sends",
			ChannelBoard:   b.Channels,
			RequesterField: "requester_email",
		},
		Child: &core.ChildMapping{
			BoardID:        b.Sends,
			GroupID:        b.SendsGroup,
			ChannelColumn:  "connect_boards_channel",
			DateColumn:     "date",
			TimeslotColumn: "status_timeslot",
			TimeslotType:   core.ColumnStatus,
			QuantityColumn: "numbers_quantity",
			ParentColumn:   "connect_boards_campaign",
			ChildrenColumn: "connect_boards_sends",
		},
		ReservationKind: core.KindScheduled,
	}
}
