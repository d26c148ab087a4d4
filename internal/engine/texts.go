package engine

// User-facing conversation texts. Rendered as HTML by the transport.
const (
	textDocumentValidationError = "❌ I couldn't open that spreadsheet. Make sure the link is correct and the document is shared with the bot, then send it again."

	textWorksheetSelection       = "Choose the worksheet to store your spendings in:"
	textCreateNewWorksheetButton = "➕ Create a new worksheet"
	textWorksheetCreation        = "Send me a name for the new worksheet."
	textWorksheetValidationError = "❌ That worksheet is not available. Pick one from the list."

	textWorksheetConfiguration = "The selected worksheet already contains data. What should I do with it?"
	textRewriteWorksheetButton = "🗑 Clear it first"
	textAppendWorksheetButton  = "➡️ Append to it"

	textRegistrationCompleted = "✅ Registration completed! Your spendings will be stored in the selected worksheet."
	textSpendingExample       = `Send me spendings like:

<code>12.5 coffee</code>
<code>12.5 coffee x2, 3 tea</code>
<code>250 groceries @15.03 14:30</code>`

	textCategoriesOffer         = "You can group your spendings with categories."
	textCategoriesOfferButton   = "Enable categories"
	textCategoriesList          = "Your categories (%d). Tap one to remove it."
	textCategoriesAddButton     = "➕ Add category"
	textCategoriesDisableButton = "Hide categories"
	textCategoriesInputNew      = "Send me a name for the new category."

	textErrorParsingSpendings = "❌ I couldn't parse any spendings from that message. Try e.g. <code>12.5 coffee x2, 3 tea</code>"
	textStoringInProgress     = "⏳ Storing your spendings..."

	textSomethingWentWrong = "Something went wrong. Please try again."
)
