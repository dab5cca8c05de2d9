package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/matheus3301/wabridge/internal/api"
	"github.com/urfave/cli/v2"
)

var sendCommand = &cli.Command{
	Name:      "send",
	Usage:     "Send a text message",
	ArgsUsage: "RECIPIENT TEXT...",
	Description: "RECIPIENT is a JID (15551234567@s.whatsapp.net, 1203...@g.us) " +
		"or a phone number in any format.",
	Before: connect,
	After:  disconnect,
	Action: cmdSend,
}

var messagesCommand = &cli.Command{
	Name:   "messages",
	Usage:  "List stored messages",
	Before: connect,
	After:  disconnect,
	Flags: append(pageFlags(50),
		&cli.StringFlag{Name: "chat", Usage: "only messages of this chat JID"},
		&cli.StringFlag{Name: "search", Usage: "substring search across all chats"},
		&cli.BoolFlag{Name: "today", Usage: "messages from the last 24 hours"},
		&cli.BoolFlag{Name: "oldest", Usage: "oldest first"},
		&cli.BoolFlag{Name: "raw", Usage: "include the raw envelope (JSON output only)"},
	),
	Action: cmdMessages,
}

var contactsCommand = &cli.Command{
	Name:   "contacts",
	Usage:  "List contacts",
	Before: connect,
	After:  disconnect,
	Flags: append(pageFlags(100),
		&cli.StringFlag{Name: "search", Usage: "match name, push name or phone"},
	),
	Action: cmdContacts,
}

var chatsCommand = &cli.Command{
	Name:   "chats",
	Usage:  "List chats, most recent first",
	Before: connect,
	After:  disconnect,
	Flags:  pageFlags(50),
	Action: cmdChats,
}

var chatCommand = &cli.Command{
	Name:      "chat",
	Usage:     "Show one chat",
	ArgsUsage: "JID",
	Before:    connect,
	After:     disconnect,
	Action:    cmdChat,
}

func pageFlags(limit int) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: limit},
		&cli.IntFlag{Name: "offset"},
	}
}

func cmdSend(ctx *cli.Context) error {
	if ctx.NArg() < 2 {
		return fmt.Errorf("usage: wabridgectl send %s", ctx.Command.ArgsUsage)
	}
	to := ctx.Args().First()
	req := &api.SendTextRequest{Text: strings.Join(ctx.Args().Tail(), " ")}
	if strings.Contains(to, "@") {
		req.JID = to
	} else {
		req.Phone = to
	}

	rctx, cancel := rpcContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).SendText(rctx, req)
	if err != nil {
		return err
	}
	if err := emit(ctx, resp, func(w io.Writer) {
		if resp.Success {
			printf(w, "Sent %s to %s\n", resp.MessageID, resp.To)
		}
	}); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("send failed: %s", resp.Error)
	}
	return nil
}

func cmdMessages(ctx *cli.Context) error {
	req := &api.ListMessagesRequest{
		ChatJID:    ctx.String("chat"),
		Search:     ctx.String("search"),
		Limit:      ctx.Int("limit"),
		Offset:     ctx.Int("offset"),
		IncludeRaw: ctx.Bool("raw"),
	}
	if ctx.Bool("today") {
		req.TimeRange = api.TimeRangeToday
	}
	if ctx.Bool("oldest") {
		req.Order = api.OrderOldest
	}

	rctx, cancel := rpcContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).ListMessages(rctx, req)
	if err != nil {
		return err
	}
	return emit(ctx, resp, func(w io.Writer) {
		printf(w, "TIME\tCHAT\tFROM\tTYPE\tTEXT\n")
		for _, m := range resp.Messages {
			chat := m.ChatName
			if chat == "" {
				chat = m.ChatJID
			}
			from := m.SenderJID
			if m.IsFromMe {
				from = "me"
			}
			printf(w, "%s\t%s\t%s\t%s\t%s\n",
				formatMillis(m.Timestamp), oneLine(chat, 30), from, m.MessageType, oneLine(m.Content, 80))
		}
		if resp.HasMore {
			printf(w, "... more with --offset %d\n", resp.Offset+resp.Count)
		}
	})
}

func cmdContacts(ctx *cli.Context) error {
	rctx, cancel := rpcContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).ListContacts(rctx, &api.ListContactsRequest{
		Search: ctx.String("search"),
		Limit:  ctx.Int("limit"),
		Offset: ctx.Int("offset"),
	})
	if err != nil {
		return err
	}
	return emit(ctx, resp, func(w io.Writer) {
		printf(w, "NAME\tPHONE\tJID\n")
		for _, c := range resp.Contacts {
			printf(w, "%s\t%s\t%s\n", oneLine(c.DisplayName, 40), orDash(c.Phone), c.JID)
		}
		if resp.HasMore {
			printf(w, "... more with --offset %d\n", ctx.Int("offset")+resp.Count)
		}
	})
}

func cmdChats(ctx *cli.Context) error {
	rctx, cancel := rpcContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).ListChats(rctx, &api.ListChatsRequest{
		Limit:  ctx.Int("limit"),
		Offset: ctx.Int("offset"),
	})
	if err != nil {
		return err
	}
	return emit(ctx, resp, func(w io.Writer) {
		printf(w, "LAST MESSAGE\tUNREAD\tNAME\tJID\n")
		for _, c := range resp.Chats {
			printf(w, "%s\t%d\t%s\t%s\n", formatMillis(c.LastMessageAt), c.UnreadCount, oneLine(orDash(c.Name), 40), c.JID)
		}
		printf(w, "%d of %d chats\n", ctx.Int("offset")+len(resp.Chats), resp.Total)
	})
}

func cmdChat(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: wabridgectl chat %s", ctx.Command.ArgsUsage)
	}
	rctx, cancel := rpcContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).GetChat(rctx, ctx.Args().First())
	if err != nil {
		return err
	}
	return emit(ctx, resp, func(w io.Writer) {
		kind := "direct"
		if resp.Chat.IsGroup {
			kind = "group"
		}
		printf(w, "JID:\t%s\n", resp.Chat.JID)
		printf(w, "Name:\t%s\n", orDash(resp.Chat.Name))
		printf(w, "Type:\t%s\n", kind)
		printf(w, "Unread:\t%d\n", resp.Chat.UnreadCount)
		printf(w, "Last message:\t%s\n", formatMillis(resp.Chat.LastMessageAt))
		printf(w, "Messages:\t%d\n", resp.MessageCount)
	})
}
