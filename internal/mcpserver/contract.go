package mcpserver

// CommandProtocol describes the reminder command protocol and the reminder
// shape for LLM consumers.
const CommandProtocol = `# MindPulse Command Protocol

Every presentation surface talks to the reminder engine with four commands.
The MCP tools of this server map one-to-one onto them.

## Reminder

| Field       | Type    | Notes                                              |
|-------------|---------|----------------------------------------------------|
| ` + "`id`" + `        | string  | assigned on create, immutable                      |
| ` + "`title`" + `     | string  | required, non-blank                                |
| ` + "`note`" + `      | string  | optional free text                                 |
| ` + "`time`" + `      | number  | epoch milliseconds; first (or only) fire instant   |
| ` + "`repeat`" + `    | string  | none, hourly, daily or weekly                      |
| ` + "`emoji`" + `     | string  | defaults to 🔔                                      |
| ` + "`done`" + `      | boolean | completion flag                                    |
| ` + "`createdAt`" + ` | number  | epoch milliseconds                                 |

## Commands

| Type              | Input                                   | Reply                              |
|-------------------|-----------------------------------------|------------------------------------|
| CREATE_REMINDER   | ` + "`{title, note?, time, repeat?, emoji?}`" + ` | ` + "`{success: true, reminder}`" + `          |
| DELETE_REMINDER   | ` + "`{id}`" + `                                  | ` + "`{success: true}`" + `                    |
| TOGGLE_DONE       | ` + "`{id}`" + `                                  | ` + "`{success: true}`" + `                    |
| GET_REMINDERS     | none                                    | array of reminders, insertion order |

Failures reply ` + "`{success: false, error}`" + `.

## Firing rules

1. A reminder whose time is in the future fires at that time.
2. A one-shot reminder (repeat none) whose time already passed never fires.
   It stays in the list, not done, and is shown as overdue.
3. A recurring reminder whose time already passed fires about a minute
   after the engine starts, then keeps its period (60, 1440 or 10080 minutes).
4. Firing a one-shot reminder marks it done. Firing a recurring reminder
   changes nothing.
5. Toggling done never stops a recurring reminder. Only delete does.
6. Delete and toggle on an unknown id succeed and change nothing.
`
