package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"rentdirect/internal/hooks"
	"rentdirect/internal/output"
	"rentdirect/pkg/types"
)

var errNotLoggedIn = errors.New("not logged in")

func (rt *runtime) hookRuntime() hooks.Runtime {
	return hooks.Runtime{
		Notifier: rt.app.Notifier(),
		Logger:   rt.app.Logger().Named("hooks"),
		Metrics:  rt.app.Metrics(),
	}
}

func (rt *runtime) writeUser(u *types.User) error {
	return output.Write(rt.out, rt.format, u, func() *output.Table {
		return &output.Table{
			Headers: []string{"ID", "NAME", "EMAIL", "ROLE"},
			Rows:    [][]string{{u.ID, u.FullName(), u.Email, string(u.Role)}},
		}
	})
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and remember the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true, EnvVars: []string{"RENTDIRECT_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			rt, err := runtimeFrom(c)
			if err != nil {
				return err
			}
			user, err := rt.app.Session.Login(c.Context, c.String("email"), c.String("password"))
			if err != nil {
				return err
			}
			rt.app.Notifier().Success("Logged in as " + user.Email)
			return rt.writeUser(user)
		},
	}
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"RENTDIRECT_PASSWORD"}},
			&cli.StringFlag{Name: "first-name", Required: true},
			&cli.StringFlag{Name: "last-name", Required: true},
			&cli.StringFlag{Name: "phone"},
			&cli.StringFlag{Name: "role", Value: string(types.RoleTenant), Usage: "OWNER or TENANT"},
		},
		Action: func(c *cli.Context) error {
			rt, err := runtimeFrom(c)
			if err != nil {
				return err
			}
			user, err := rt.app.Session.Register(c.Context, types.RegisterRequest{
				Email:     c.String("email"),
				Password:  c.String("password"),
				FirstName: c.String("first-name"),
				LastName:  c.String("last-name"),
				Phone:     c.String("phone"),
				Role:      types.Role(strings.ToUpper(c.String("role"))),
			})
			if err != nil {
				return err
			}
			rt.app.Notifier().Success("Account created for " + user.Email)
			return rt.writeUser(user)
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the stored session",
		Action: func(c *cli.Context) error {
			rt, err := runtimeFrom(c)
			if err != nil {
				return err
			}
			rt.app.Session.Logout(c.Context)
			rt.app.Notifier().Success("Logged out")
			return nil
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Action: func(c *cli.Context) error {
			rt, err := runtimeFrom(c)
			if err != nil {
				return err
			}
			state := rt.app.Session.Snapshot()
			if !state.IsAuthenticated {
				return errNotLoggedIn
			}
			return rt.writeUser(state.User)
		},
	}
}

func propertiesCommand() *cli.Command {
	return &cli.Command{
		Name:  "properties",
		Usage: "Browse listings",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
			&cli.IntFlag{Name: "limit", Value: 10, Usage: "Items per page"},
			&cli.StringFlag{Name: "city", Usage: "Filter by city"},
			&cli.StringFlag{Name: "type", Usage: "Filter by property type"},
		},
		Action: func(c *cli.Context) error {
			rt, err := runtimeFrom(c)
			if err != nil {
				return err
			}

			filter := url.Values{}
			if v := c.String("city"); v != "" {
				filter.Set("city", v)
			}
			if v := c.String("type"); v != "" {
				filter.Set("type", v)
			}

			pager := hooks.NewPaginated(func(ctx context.Context, page, limit int) (*types.Envelope[types.Page[types.Property]], error) {
				return rt.app.API.Properties.List(ctx, filter, page, limit)
			}, hooks.PaginatedOptions[types.Property]{
				Runtime:      rt.hookRuntime(),
				InitialPage:  c.Int("page"),
				InitialLimit: c.Int("limit"),
			})
			defer pager.Close()

			res := pager.Refresh(c.Context)
			if !res.OK() {
				return errReported
			}
			return writeProperties(rt, res.Data)
		},
	}
}

func writeProperties(rt *runtime, state hooks.PaginationState[types.Property]) error {
	err := output.Write(rt.out, rt.format, state.Items, func() *output.Table {
		t := &output.Table{Headers: []string{"ID", "TITLE", "CITY", "TYPE", "PRICE", "STATUS"}}
		for _, p := range state.Items {
			t.Rows = append(t.Rows, []string{
				p.ID, p.Title, p.City, p.Type,
				strconv.FormatFloat(p.Price, 'f', -1, 64), p.Status,
			})
		}
		return t
	})
	if err != nil {
		return err
	}
	if rt.format == output.FormatTable {
		_, err = fmt.Fprintf(rt.out, "\nPage %d of %d (%d total)\n", state.Page, state.TotalPages, state.Total)
	}
	return err
}

func conversationsCommand() *cli.Command {
	return &cli.Command{
		Name:  "conversations",
		Usage: "List chat conversations",
		Action: func(c *cli.Context) error {
			rt, err := runtimeFrom(c)
			if err != nil {
				return err
			}
			if !rt.app.Session.Snapshot().IsAuthenticated {
				return errNotLoggedIn
			}

			q := hooks.NewQuery(rt.app.API.Chat.Conversations, hooks.QueryOptions[[]types.Conversation]{
				Runtime: rt.hookRuntime(),
			})
			defer q.Close()

			res := q.Execute(c.Context)
			if !res.OK() {
				return errReported
			}
			return output.Write(rt.out, rt.format, res.Data, func() *output.Table {
				t := &output.Table{Headers: []string{"ID", "WITH", "UNREAD", "LAST MESSAGE"}}
				for _, conv := range res.Data {
					last := ""
					if conv.LastMessage != nil {
						last = conv.LastMessage.Content
					}
					t.Rows = append(t.Rows, []string{conv.ID, participants(conv.Participants), strconv.Itoa(conv.UnreadCount), last})
				}
				return t
			})
		},
	}
}

func participants(users []types.User) string {
	names := make([]string, 0, len(users))
	for i := range users {
		names = append(names, users[i].FullName())
	}
	return strings.Join(names, ", ")
}
