package controllers

import (
	"Board/api/board"
	"Board/api/ledger"
	"Board/api/models"
)

func userToDTO(user *models.User, isFollowing bool) UserDTO {
	return UserDTO{
		ID:              user.ID,
		Username:        user.Username,
		Profile:         user.Profile,
		Description:     user.Description,
		FollowersCount:  user.IncomingFollowCount,
		FollowingsCount: user.OutgoingFollowCount,
		IsFollowing:     isFollowing,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
}

func userViewToDTO(view ledger.UserView) UserDTO {
	return userToDTO(&view.User, view.IsFollowing)
}

func userViewsToDTOs(views []ledger.UserView) []UserDTO {
	out := make([]UserDTO, len(views))
	for i := range views {
		out[i] = userViewToDTO(views[i])
	}
	return out
}

func followersToDTOs(views []ledger.FollowerView) []FollowerDTO {
	out := make([]FollowerDTO, len(views))
	for i := range views {
		out[i] = FollowerDTO{UserDTO: userViewToDTO(views[i].UserView), FollowedAt: views[i].FollowedAt}
	}
	return out
}

func likedUsersToDTOs(views []ledger.LikedUserView) []LikedUserDTO {
	out := make([]LikedUserDTO, len(views))
	for i := range views {
		out[i] = LikedUserDTO{
			UserDTO: userViewToDTO(views[i].UserView),
			PostID:  views[i].PostID,
			LikedAt: views[i].LikedAt,
		}
	}
	return out
}

func userSummary(user *models.User) UserSummaryDTO {
	return UserSummaryDTO{ID: user.ID, Username: user.Username, Profile: user.Profile}
}

func postToDTO(view *board.PostView) PostDTO {
	return PostDTO{
		ID:           view.ID,
		Body:         view.Body,
		Author:       userSummary(&view.User),
		LikesCount:   view.LikesCount,
		RepliesCount: view.RepliesCount,
		IsLiking:     view.IsLiking,
		CreatedAt:    view.CreatedAt,
		UpdatedAt:    view.UpdatedAt,
	}
}

func postsToDTOs(views []board.PostView) []PostDTO {
	out := make([]PostDTO, len(views))
	for i := range views {
		out[i] = postToDTO(&views[i])
	}
	return out
}

func replyToDTO(reply *models.Reply) ReplyDTO {
	return ReplyDTO{
		ID:        reply.ID,
		PostID:    reply.PostID,
		Body:      reply.Body,
		Author:    userSummary(&reply.User),
		CreatedAt: reply.CreatedAt,
		UpdatedAt: reply.UpdatedAt,
	}
}

func repliesToDTOs(replies []models.Reply) []ReplyDTO {
	out := make([]ReplyDTO, len(replies))
	for i := range replies {
		out[i] = replyToDTO(&replies[i])
	}
	return out
}
