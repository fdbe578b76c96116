package bot

import "github.com/bwmarrin/discordgo"

var manageServer int64 = discordgo.PermissionManageServer

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func subcommandOption(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

func ruleOptions(update bool) []*discordgo.ApplicationCommandOption {
	opts := []*discordgo.ApplicationCommandOption{
		stringOption("name", "Rule name (letters, digits, - and _)", true),
	}
	if update {
		opts = append(opts, stringOption("rename", "New rule name", false))
	}
	return append(opts,
		stringOption("invites", "Invite codes or links, separated by spaces", false),
		stringOption("roles_to_add", "Roles granted on join", false),
		stringOption("roles_to_remove", "Roles removed shortly after join", false),
		stringOption("description", "Shown in the rule list", false),
		stringOption("color", "Hex color such as #5865F2", false),
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "enabled",
			Description: "Whether the rule applies to new members",
		},
	)
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	boardName := stringOption("name", "Leaderboard name", true)
	domain := stringOption("domain", "Domain or URL", true)

	return []*discordgo.ApplicationCommand{
		{
			Name:                     "inviterole",
			Description:              "Grant roles based on the invite a member joined with",
			DefaultMemberPermissions: &manageServer,
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Attribuer des roles selon l'invitation utilisee",
				discordgo.EnglishUS: "Grant roles based on the invite a member joined with",
				discordgo.SpanishES: "Asignar roles segun la invitacion usada",
			},
			Options: []*discordgo.ApplicationCommandOption{
				subcommandOption("add", "Create a rule", ruleOptions(false)...),
				subcommandOption("update", "Change a rule", ruleOptions(true)...),
				subcommandOption("remove", "Delete a rule", stringOption("name", "Rule name", true)),
				subcommandOption("list", "Show rules", stringOption("name", "Only this rule", false)),
			},
		},
		{
			Name:        "leaderboard",
			Description: "Manage and view leaderboards",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Gerer et afficher les classements",
				discordgo.EnglishUS: "Manage and view leaderboards",
				discordgo.SpanishES: "Gestionar y ver clasificaciones",
			},
			Options: []*discordgo.ApplicationCommandOption{
				subcommandOption("create", "Create a leaderboard",
					boardName,
					stringOption("title", "Heading shown above the ranking", false),
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "type",
						Description: "What is counted",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "user scores", Value: "user"},
							{Name: "posts", Value: "post"},
						},
					},
				),
				subcommandOption("delete", "Delete a leaderboard and its posted message", boardName),
				subcommandOption("reset", "Clear every score", boardName),
				subcommandOption("post", "Post a live-updating copy",
					boardName,
					&discordgo.ApplicationCommandOption{
						Type:         discordgo.ApplicationCommandOptionChannel,
						Name:         "channel",
						Description:  "Defaults to this channel",
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews},
					},
				),
				subcommandOption("show", "Show the current ranking", boardName),
				subcommandOption("add", "Add points to a user",
					boardName,
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionUser,
						Name:        "user",
						Description: "Who gets the points",
						Required:    true,
					},
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionNumber,
						Name:        "amount",
						Description: "Defaults to 1; negative values subtract",
					},
				),
				subcommandOption("addpost", "Credit a post to a user",
					boardName,
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionUser,
						Name:        "user",
						Description: "Author to credit",
						Required:    true,
					},
					stringOption("message", "Message link or ID", true),
				),
				subcommandOption("list", "List leaderboards"),
			},
		},
		{
			Name:                     "links",
			Description:              "Allow or block link domains",
			DefaultMemberPermissions: &manageServer,
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Autoriser ou bloquer des domaines",
				discordgo.EnglishUS: "Allow or block link domains",
				discordgo.SpanishES: "Permitir o bloquear dominios",
			},
			Options: []*discordgo.ApplicationCommandOption{
				subcommandOption("allow", "Always allow a domain", domain),
				subcommandOption("block", "Remove messages linking to a domain", domain),
				subcommandOption("remove", "Take a domain off both lists", domain),
				subcommandOption("list", "Show both lists"),
			},
		},
		{
			Name:                     "logs",
			Description:              "Show or set the log and alert channels",
			DefaultMemberPermissions: &manageServer,
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Afficher ou definir les salons de logs",
				discordgo.EnglishUS: "Show or set the log and alert channels",
				discordgo.SpanishES: "Mostrar o definir los canales de registro",
			},
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Audit log channel",
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "alerts",
					Description: "Channel for blocked link alerts",
				},
				stringOption("language", "Language for dates and numbers, such as en or fr", false),
			},
		},
		{
			Name:        "stats",
			Description: "Show bot and server statistics",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Afficher les statistiques",
				discordgo.EnglishUS: "Show bot and server statistics",
				discordgo.SpanishES: "Mostrar estadisticas",
			},
		},
	}
}

func (b *Bot) registerCommands() error {
	commands := commandDefinitions()

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}
	return nil
}
