package ai

import (
	"fmt"
	"strings"

	"github.com/macromojo/macromojo/internal/ports/outbound"
)

// WelcomeMessage opens every new conversation
const WelcomeMessage = `Hello, I am here to help you find your mojo!
Tell me about yourself and your goals and I'll provide recommendation for the calorie and macronutrients you should eat per day.
Minimum information I need: your weight, your height, gender, age, your weight goals.
Additional information that will be helpful: how much do you exercise per week? What do you do for the exercise?`

const nutritionTemplate = `You are good at providing estimates for target daily intakes for calories and macronutrients (protein, fats, carbohydrates) based on information your client (user) provided. Your answers are short and don't include calculations, only include result of calculations.

Previous conversation history:
{chat_history}

Current user input: {input}
Information you need is sex (female or male), weight, height, age, and activity level. If activity level is not provided, assume sedentary activity level.
When you get just enough information from user, provide recommendation for target calories, protein, fat, and carbohydrates daily intake. Be concise in your answer. Simply provide recommended targets and a very short explanation.

When you are not provided enough information to provide a recommendation, you ask additional questions to get that information in a polite and concise manner. When you don't know the answer to a question you admit that you don't know.`

const offTopicTemplate = `Previous conversation history:
{chat_history}

Current user input: {input}

If the current input is not related to questions about calorie or macronutrient daily targets for the user or the input is not providing information needed to provide recommendation for calories and macronutrients daily intake, you politely remind user that you can help with nutrition advice but can't comment on other topics.`

const defaultTemplate = `Chat History: {chat_history}

User Input: {input}`

// destination describes one prompt the router may pick
type destination struct {
	route       Route
	description string
	template    string
}

var destinations = []destination{
	{RouteNutrition, "Good for providing nutrition recommendation", nutritionTemplate},
	{RouteOffTopic, "Good for reminding that you can only provide recommendations about calorie and macronutrients targets for people", offTopicTemplate},
}

const routerTemplate = "Given a raw text input to a language model and chat history select the model prompt best suited for the input. " +
	"You will be given the names of the available prompts and a description of what the prompt is best suited for. " +
	"You may also revise the original input if you think that revising it will ultimately lead to a better response from the language model.\n\n" +
	"<< FORMATTING >>\n" +
	"Return a markdown code snippet with a JSON object formatted to look like:\n" +
	"```json\n" +
	"{\n" +
	"    \"destination\": string \\ \"DEFAULT\" or name of the prompt to use in {destinations}\n" +
	"    \"next_inputs\": string \\ a potentially modified version of the original input\n" +
	"}\n" +
	"```\n\n" +
	"REMEMBER: The value of \"destination\" MUST match one of the candidate prompts listed below. " +
	"If \"destination\" does not fit any of the specified prompts, set it to \"DEFAULT\".\n" +
	"REMEMBER: \"next_inputs\" can just be the original input if you don't think any modifications are needed.\n\n" +
	"<< CANDIDATE PROMPTS >>\n{destinations}\n\n" +
	"<< CHAT HISTORY >>\n{chat_history}\n\n" +
	"<< INPUT >>\n{input}\n\n" +
	"<< OUTPUT (remember to include the ```json)>>\n"

func templateFor(route Route) string {
	for _, d := range destinations {
		if d.route == route {
			return d.template
		}
	}
	return defaultTemplate
}

func destinationList() string {
	lines := make([]string, 0, len(destinations))
	for _, d := range destinations {
		lines = append(lines, fmt.Sprintf("%s: %s", d.route, d.description))
	}
	return strings.Join(lines, "\n")
}

// formatHistory renders prior turns the way the prompts expect them
func formatHistory(history []outbound.ChatMessage) string {
	var b strings.Builder
	for _, m := range history {
		switch m.Role {
		case outbound.RoleUser:
			b.WriteString("Human: ")
		case outbound.RoleAssistant:
			b.WriteString("AI: ")
		default:
			continue
		}
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func render(template string, history []outbound.ChatMessage, input string) string {
	return strings.NewReplacer(
		"{chat_history}", formatHistory(history),
		"{input}", input,
		"{destinations}", destinationList(),
	).Replace(template)
}
