package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/logging"
)

// Commands are registered in the configured guild on startup.
var Commands = []*discordgo.ApplicationCommand{
	{Name: "evening", Description: "Show evening digest with quick actions."},
	{Name: "reschedule", Description: "Reschedule a selected task."},
	{Name: "defer", Description: "Defer a selected task by days."},
	{Name: "done", Description: "Mark a selected task done."},
}

// Discord connects a Handler to the Discord gateway.
type Discord struct {
	session *discordgo.Session
	handler *Handler
	appID   string
	guildID string
	log     *slog.Logger
}

// NewDiscord creates a bot session. Nothing is opened until Run.
func NewDiscord(cfg config.BotConfig, handler *Handler, log *slog.Logger) (*Discord, error) {
	if cfg.Token == "" || cfg.AppID == "" || cfg.GuildID == "" {
		return nil, apperr.New(apperr.Configuration, "DISCORD_BOT_TOKEN, DISCORD_APP_ID and DISCORD_GUILD_ID are required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("unable to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	return &Discord{
		session: session,
		handler: handler,
		appID:   cfg.AppID,
		guildID: cfg.GuildID,
		log:     logging.OrDiscard(log),
	}, nil
}

// Run connects, registers the slash commands and serves interactions until
// ctx is done.
func (d *Discord) Run(ctx context.Context) error {
	d.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		d.log.Info("discord bot ready", "user", r.User.String())
	})
	d.session.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		in, ok := toInteraction(ic)
		if !ok {
			return
		}
		reply := d.handler.Handle(ctx, in)
		if err := s.InteractionRespond(ic.Interaction, toResponse(reply)); err != nil {
			d.log.Error("discord respond failed", "custom_id", in.CustomID, "command", in.Command, "error", err)
		}
	})

	if err := d.session.Open(); err != nil {
		return apperr.Wrap(apperr.Upstream, err, "unable to connect to discord")
	}
	defer d.session.Close()

	if _, err := d.session.ApplicationCommandBulkOverwrite(d.appID, d.guildID, Commands); err != nil {
		return apperr.Wrap(apperr.Upstream, err, "unable to register slash commands")
	}
	d.log.Info("registered guild slash commands", "guild_id", d.guildID, "count", len(Commands))

	<-ctx.Done()
	return nil
}

func toInteraction(ic *discordgo.InteractionCreate) (Interaction, bool) {
	in := Interaction{UserID: interactionUser(ic.Interaction)}
	switch ic.Type {
	case discordgo.InteractionApplicationCommand:
		in.Type = CommandInteraction
		in.Command = ic.ApplicationCommandData().Name
	case discordgo.InteractionMessageComponent:
		data := ic.MessageComponentData()
		in.CustomID = data.CustomID
		in.Values = data.Values
		in.Type = SelectInteraction
		if data.ComponentType == discordgo.ButtonComponent {
			in.Type = ButtonInteraction
		}
	case discordgo.InteractionModalSubmit:
		data := ic.ModalSubmitData()
		in.Type = ModalInteraction
		in.CustomID = data.CustomID
		in.Fields = modalFields(data.Components)
	default:
		return Interaction{}, false
	}
	return in, true
}

func interactionUser(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func modalFields(components []discordgo.MessageComponent) map[string]string {
	fields := map[string]string{}
	var walk func([]discordgo.MessageComponent)
	walk = func(cs []discordgo.MessageComponent) {
		for _, c := range cs {
			switch v := c.(type) {
			case *discordgo.ActionsRow:
				walk(v.Components)
			case discordgo.ActionsRow:
				walk(v.Components)
			case *discordgo.TextInput:
				fields[v.CustomID] = v.Value
			case discordgo.TextInput:
				fields[v.CustomID] = v.Value
			}
		}
	}
	walk(components)
	return fields
}

func toResponse(r Reply) *discordgo.InteractionResponse {
	if r.Modal != nil {
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseModal,
			Data: &discordgo.InteractionResponseData{
				CustomID: r.Modal.CustomID,
				Title:    r.Modal.Title,
				Components: []discordgo.MessageComponent{
					discordgo.ActionsRow{Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    r.Modal.InputID,
							Label:       r.Modal.Label,
							Style:       discordgo.TextInputShort,
							Placeholder: r.Modal.Placeholder,
							Required:    true,
						},
					}},
				},
			},
		}
	}

	data := &discordgo.InteractionResponseData{
		Content:    r.Content,
		Components: []discordgo.MessageComponent{},
	}
	if r.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if len(r.Buttons) > 0 {
		row := discordgo.ActionsRow{}
		for _, b := range r.Buttons {
			row.Components = append(row.Components, discordgo.Button{
				CustomID: b.CustomID,
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
			})
		}
		data.Components = append(data.Components, row)
	}
	if r.Select != nil {
		menu := discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    r.Select.CustomID,
			Placeholder: r.Select.Placeholder,
		}
		for _, o := range r.Select.Options {
			menu.Options = append(menu.Options, discordgo.SelectMenuOption{
				Label:       o.Label,
				Value:       o.Value,
				Description: o.Description,
			})
		}
		data.Components = append(data.Components, discordgo.ActionsRow{Components: []discordgo.MessageComponent{menu}})
	}

	typ := discordgo.InteractionResponseChannelMessageWithSource
	if r.Update {
		typ = discordgo.InteractionResponseUpdateMessage
	}
	return &discordgo.InteractionResponse{Type: typ, Data: data}
}

func buttonStyle(s ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case PrimaryButton:
		return discordgo.PrimaryButton
	case SuccessButton:
		return discordgo.SuccessButton
	case DangerButton:
		return discordgo.DangerButton
	default:
		return discordgo.SecondaryButton
	}
}
