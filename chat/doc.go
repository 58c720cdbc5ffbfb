// Package chat runs the Twitch chat side of the command service.
//
// The bot joins TWITCH_CHANNEL and watches for messages that start with "!":
//   - !addcmd, !editcmd and !delcmd let moderators and the broadcaster manage
//     custom commands from chat. Everyone else is ignored.
//   - any other "!name" stored in the command store is answered with its response.
//
// The IRC client requires a bot username and an OAuth token with chat:read and
// chat:edit scopes. Store failures are logged and never stop the bot.
package chat
