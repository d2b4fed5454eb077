package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// textSize marks a column as unbounded text.
const textSize = 2147483647

var (
	// AssignmentsColumns holds the columns for the "assignments" table.
	AssignmentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "title", Type: field.TypeString},
		{Name: "payload", Type: field.TypeBytes},
		{Name: "created_at", Type: field.TypeTime},
	}
	// AssignmentsTable holds the schema information for the "assignments" table.
	AssignmentsTable = &schema.Table{
		Name:       "assignments",
		Columns:    AssignmentsColumns,
		PrimaryKey: []*schema.Column{AssignmentsColumns[0]},
	}

	// SessionsColumns holds the columns for the "sessions" table.
	SessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "assignment_id", Type: field.TypeString},
		{Name: "phase", Type: field.TypeString},
		{Name: "source_index", Type: field.TypeInt, Default: 0},
		{Name: "skill_index", Type: field.TypeInt, Default: 0},
		{Name: "questions_asked", Type: field.TypeInt, Default: 0},
		{Name: "evidence", Type: field.TypeBytes},
		{Name: "version", Type: field.TypeInt64, Default: 0},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "ended_at", Type: field.TypeTime, Nullable: true},
	}
	// SessionsTable holds the schema information for the "sessions" table.
	SessionsTable = &schema.Table{
		Name:       "sessions",
		Columns:    SessionsColumns,
		PrimaryKey: []*schema.Column{SessionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "sessions_assignments_sessions",
				Columns:    []*schema.Column{SessionsColumns[1]},
				RefColumns: []*schema.Column{AssignmentsColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{Name: "session_assignment_id", Columns: []*schema.Column{SessionsColumns[1]}},
		},
	}

	// TranscriptEntriesColumns holds the columns for the "transcript_entries" table.
	TranscriptEntriesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "session_id", Type: field.TypeString},
		{Name: "seq", Type: field.TypeInt},
		{Name: "phase", Type: field.TypeString},
		{Name: "source_index", Type: field.TypeInt},
		{Name: "skill_index", Type: field.TypeInt},
		{Name: "student_input", Type: field.TypeString, Nullable: true, Size: textSize},
		{Name: "system_output", Type: field.TypeString, Size: textSize},
		{Name: "created_at", Type: field.TypeTime},
	}
	// TranscriptEntriesTable holds the schema information for the "transcript_entries" table.
	TranscriptEntriesTable = &schema.Table{
		Name:       "transcript_entries",
		Columns:    TranscriptEntriesColumns,
		PrimaryKey: []*schema.Column{TranscriptEntriesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "transcript_entries_sessions_entries",
				Columns:    []*schema.Column{TranscriptEntriesColumns[1]},
				RefColumns: []*schema.Column{SessionsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "transcriptentry_session_id_seq",
				Unique:  true,
				Columns: []*schema.Column{TranscriptEntriesColumns[1], TranscriptEntriesColumns[2]},
			},
		},
	}

	// LlmRequestEventsColumns holds the columns for the "llm_request_events" table.
	LlmRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "session_id", Type: field.TypeString, Default: ""},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: "", Size: textSize},
		{Name: "request_body", Type: field.TypeString, Default: "", Size: textSize},
		{Name: "response_body", Type: field.TypeString, Default: "", Size: textSize},
	}
	// LlmRequestEventsTable holds the schema information for the "llm_request_events" table.
	LlmRequestEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    LlmRequestEventsColumns,
		PrimaryKey: []*schema.Column{LlmRequestEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequestevent_purpose", Columns: []*schema.Column{LlmRequestEventsColumns[5]}},
			{Name: "llmrequestevent_session_id", Columns: []*schema.Column{LlmRequestEventsColumns[2]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		AssignmentsTable,
		SessionsTable,
		TranscriptEntriesTable,
		LlmRequestEventsTable,
	}
)

func init() {
	SessionsTable.ForeignKeys[0].RefTable = AssignmentsTable
	TranscriptEntriesTable.ForeignKeys[0].RefTable = SessionsTable
}
