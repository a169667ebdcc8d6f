package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-hclog"
	"github.com/raceline/typerace/config"
	"github.com/raceline/typerace/globals"
	"github.com/raceline/typerace/persistence"
	"github.com/raceline/typerace/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// A very simple CLI tool for the administration of typerace rooms and users.

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
)

func main() {
	log.SetFlags(0)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		<-c
		log.Fatal("interrupted!")
	}()

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)

	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}

	globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))

	// file-backed buntdb has no cross-process coordination, take an exclusive
	// lock so we never open the file while the server holds it
	if dsn := globalConfig.PersistenceConfig.DSN; dsn != "" && dsn != ":memory:" &&
		(globalConfig.PersistenceConfig.Type == "" || globalConfig.PersistenceConfig.Type == "buntdb") {
		fileLock := flock.New(dsn + ".lock")
		locked, err := fileLock.TryLock()
		if err != nil {
			panic(err)
		}
		if !locked {
			panic("database is locked by another process")
		}
		defer fileLock.Unlock()
	}

	store, err := persistence.NewStore(globalConfig)
	if err != nil {
		panic(err)
	}
	defer store.Close()

	var cmdShow = &cobra.Command{
		Use:   "show",
		Short: "Show rooms, users or players",
		Long:  `show is for printing user, room or player information.`,
		Args:  cobra.MinimumNArgs(0),
	}
	var cmdShowRooms = &cobra.Command{
		Use:   "rooms",
		Short: "Show rooms",
		Long:  `show rooms lists all available rooms.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			var rooms []*types.Room
			err := store.View(func(tx persistence.Tx) error {
				var err error
				rooms, err = tx.Rooms()
				return err
			})
			if err != nil {
				globals.AppLogger.Error("could not get rooms", "error", err)
				return
			}
			r, err := json.Marshal(rooms)
			if err != nil {
				globals.AppLogger.Error("could not marshal rooms", "error", err)
				return
			}
			fmt.Println(string(r))
		},
	}
	var cmdShowRoom = &cobra.Command{
		Use:   "room [room id]",
		Short: "Show room",
		Long:  `show room prints the room with the given id together with its players.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var room *types.Room
			var players []*types.PlayerProgress
			err := store.View(func(tx persistence.Tx) error {
				var err error
				room, err = tx.GetRoom(args[0])
				if err != nil {
					return err
				}
				players, err = tx.ProgressByRoom(args[0])
				return err
			})
			if err != nil {
				globals.AppLogger.Error("could not get room", "error", err)
				return
			}
			r, err := json.Marshal(map[string]interface{}{"room": room, "players": players})
			if err != nil {
				globals.AppLogger.Error("could not marshal room", "error", err)
				return
			}
			fmt.Println(string(r))
		},
	}
	var cmdShowUsers = &cobra.Command{
		Use:   "users",
		Short: "Show users",
		Long:  `show users lists all registered users.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			var users []*types.User
			err := store.View(func(tx persistence.Tx) error {
				var err error
				users, err = tx.Users()
				return err
			})
			if err != nil {
				globals.AppLogger.Error("could not get users", "error", err)
				return
			}
			u, err := json.Marshal(users)
			if err != nil {
				globals.AppLogger.Error("could not marshal users", "error", err)
				return
			}
			fmt.Println(string(u))
		},
	}
	var cmdShowUser = &cobra.Command{
		Use:   "user [user id]",
		Short: "Show user",
		Long:  `show user prints the user with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var user *types.User
			err := store.View(func(tx persistence.Tx) error {
				var err error
				user, err = tx.GetUser(args[0])
				return err
			})
			if err != nil {
				globals.AppLogger.Error("could not get user", "error", err)
				return
			}
			u, err := json.Marshal(user)
			if err != nil {
				globals.AppLogger.Error("could not marshal user", "error", err)
				return
			}
			fmt.Println(string(u))
		},
	}
	var cmdDelete = &cobra.Command{
		Use:   "delete",
		Short: "delete a user",
		Long:  `delete removes the user with a given user id.`,
		Args:  cobra.MinimumNArgs(0),
	}
	var cmdReset = &cobra.Command{
		Use:   "reset",
		Short: "reset a room",
		Long:  `reset puts a room back into the lobby state.`,
		Args:  cobra.MinimumNArgs(0),
	}
	var cmdResetRoom = &cobra.Command{
		Use:   "room [room id]",
		Short: "Reset room",
		Long:  `reset room drops the room's games and progress rows and puts it back into the lobby.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			err := store.Update(func(tx persistence.Tx) error {
				players, err := tx.ProgressByRoom(args[0])
				if err != nil {
					return err
				}
				for _, p := range players {
					if err := tx.DeleteProgress(p.UserId, p.RoomId); err != nil {
						return err
					}
				}
				if game, err := tx.LatestGameByRoom(args[0]); err == nil {
					if err := tx.DeleteGame(game.Id); err != nil {
						return err
					}
				}
				room, err := tx.GetRoom(args[0])
				if err != nil {
					return err
				}
				room.Status = types.RoomStatusLobby
				room.CurrentGameId = ""
				return tx.PutRoom(room)
			})
			if err != nil {
				globals.AppLogger.Error("could not reset room", "error", err)
				return
			}
		},
	}
	var cmdDeleteUser = &cobra.Command{
		Use:   "user [user id]",
		Short: "Delete user",
		Long:  `delete user removes the user with the given id and all of their progress rows.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			err := store.Update(func(tx persistence.Tx) error {
				rows, err := tx.ProgressByUser(args[0])
				if err != nil {
					return err
				}
				for _, p := range rows {
					if err := tx.DeleteProgress(p.UserId, p.RoomId); err != nil {
						return err
					}
				}
				return tx.DeleteUser(args[0])
			})
			if err != nil {
				globals.AppLogger.Error("could not delete user", "error", err)
				return
			}
		},
	}
	var cmdSet = &cobra.Command{
		Use:   "set",
		Short: "create/update room or user",
		Long:  `set creates or updates a room or user.`,
		Args:  cobra.MinimumNArgs(0),
	}
	var cmdSetRoom = &cobra.Command{
		Use:   "room [room definition]",
		Short: "Set room",
		Long:  `set room creates or updates a room. If the room definition is "-", the definition is read from STDIN.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var r io.Reader
			if args[0] == "-" {
				r = os.Stdin
			} else {
				r = bytes.NewReader([]byte(args[0]))
			}
			dec := json.NewDecoder(r)
			room := types.Room{}
			err := dec.Decode(&room)
			if err != nil {
				globals.AppLogger.Error("could not decode room", "error", err)
				return
			}
			if room.Id == "" {
				globals.AppLogger.Error("no room id")
				return
			}
			if room.OwnerId == "" {
				globals.AppLogger.Warn("no owner set")
			}
			if room.Status == "" {
				room.Status = types.RoomStatusLobby
			}
			if room.MaxPlayers == 0 {
				room.MaxPlayers = globalConfig.GameConfig.MaxPlayers
			}
			if room.NextPlayerNumber == 0 {
				room.NextPlayerNumber = 1
			}
			err = store.Update(func(tx persistence.Tx) error {
				return tx.PutRoom(&room)
			})
			if err != nil {
				globals.AppLogger.Error("could not store room", "error", err)
				return
			}
		},
	}
	var cmdSetUser = &cobra.Command{
		Use:   "user [user definition]",
		Short: "Set user",
		Long:  `set user creates or updates a user with the given definition. If the user definition is "-", it is read from STDIN.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var r io.Reader
			if args[0] == "-" {
				r = os.Stdin
			} else {
				r = bytes.NewReader([]byte(args[0]))
			}
			dec := json.NewDecoder(r)
			user := types.User{}
			err := dec.Decode(&user)
			if err != nil {
				globals.AppLogger.Error("could not decode user", "error", err)
				return
			}
			if user.Id == "" {
				globals.AppLogger.Error("no user id")
				return
			}
			err = store.Update(func(tx persistence.Tx) error {
				return tx.PutUser(&user)
			})
			if err != nil {
				globals.AppLogger.Error("could not store user", "error", err)
				return
			}
		},
	}
	var rootCmd = &cobra.Command{Use: "typerace-admin"}
	rootCmd.AddCommand(cmdShow)
	rootCmd.AddCommand(cmdDelete)
	rootCmd.AddCommand(cmdReset)
	rootCmd.AddCommand(cmdSet)
	cmdShow.AddCommand(cmdShowRooms, cmdShowRoom, cmdShowUsers, cmdShowUser)
	cmdDelete.AddCommand(cmdDeleteUser)
	cmdReset.AddCommand(cmdResetRoom)
	cmdSet.AddCommand(cmdSetRoom, cmdSetUser)
	rootCmd.Execute()
}
